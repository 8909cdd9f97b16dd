package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/school"
	emailsvc "github.com/trezcool/rapor/services/email"
	logsvc "github.com/trezcool/rapor/services/logger"
	"github.com/trezcool/rapor/storage/database"
	sqlxrepos "github.com/trezcool/rapor/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	dialect := database.Dialect(conf)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		dialect:  dialect,
		svc:      school.NewService(sqlxrepos.NewSchoolRepository(db, dialect), logger, conf),
		emailSvc: mailSvc,
		validate: validate,
		printer:  message.NewPrinter(language.Make(conf.Locale)),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
