package main

import (
	"log"
	"os"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/user"
	"github.com/hazard-Tom2004/TESA-API/storage/database"
	"github.com/hazard-Tom2004/TESA-API/storage/database/inmem"
	"github.com/hazard-Tom2004/TESA-API/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	core.InitValidators()
	academic.InitValidators()
	material.InitValidators()

	var usrRepo user.Repository
	if conf.Debug {
		db, err := inmemdb.Open()
		errAndDie(err)
		usrRepo = inmemdb.NewUserRepository(db)
	} else {
		sqlDB, err := database.Open(conf)
		errAndDie(err)
		defer sqlDB.Close()
		usrRepo = sqlxrepos.NewUserRepository(sqlDB)
	}

	cli := commandLine{usrRepo: usrRepo}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
