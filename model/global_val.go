package model

// 电芯类型
const (
	CellLiIonPhosphate = "li_ion_phosphate"
	CellLiIonCobalt    = "li_ion_cobalt"
	CellNiMH           = "nimh"
	CellLeadAcid       = "lead_acid"
)

// 外形
const (
	FormCylindrical = "cylindrical"
	FormPrismatic   = "prismatic"
	FormPouch       = "pouch"
)

// 协议命令与回复
const (
	CmdStart            = "start_simulation"
	CmdPause            = "pause_simulation"
	CmdResume           = "resume_simulation"
	CmdStop             = "stop_simulation"
	CmdUpdateParameters = "update_parameters"

	MsgStarted           = "simulation_started"
	MsgPaused            = "simulation_paused"
	MsgResumed           = "simulation_resumed"
	MsgStopped           = "simulation_stopped"
	MsgFinished          = "simulation_finished"
	MsgUpdate            = "simulation_update"
	MsgParametersUpdated = "parameters_updated"
	MsgError             = "error"
)
