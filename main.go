package main

import (
	"context"
	"flag"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"batsim/calculator"
	"batsim/server"
	"batsim/store"
)

func main() {
	cfgPath := flag.String("config", "conf/config.ini", "config file")
	flag.Parse()

	file, err := ini.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Warn("配置文件读取错误，使用默认配置")
		file = ini.Empty()
	}
	setupLog(file)

	repo, err := store.New(context.Background(), store.LoadConfig(file))
	if err != nil {
		log.WithError(err).Fatal("初始化存储失败")
	}
	defer repo.Close()

	s := server.NewServer(server.LoadConfig(file), calculator.LoadConfig(file), repo)
	if err := s.Serve(); err != nil {
		log.WithError(err).Fatal("ListenAndServe")
	}
}

func setupLog(file *ini.File) {
	sec := file.Section("log")
	level, err := log.ParseLevel(sec.Key("level").MustString("info"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if sec.Key("json").MustBool(false) {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
