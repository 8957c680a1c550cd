package app

import (
	"github.com/mbolis/santas-scanner/config"
	"github.com/mbolis/santas-scanner/database"
	"github.com/mbolis/santas-scanner/geo"
	"github.com/mbolis/santas-scanner/model"
)

type App struct {
	Results   database.ResultStore
	Geo       geo.Lookup
	Questions []model.Question
	config.Config
}
