package main

import (
	"github.com/joho/godotenv"

	"signage/internal/app"
	"signage/internal/logs"
)

// @title                       Simple Digital Signage API
// @version                     1.0
// @description                 Users, companies, invitations and TV pairing.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		logs.Logger.Debug("no .env file, using environment")
	}
	if err := app.Run(); err != nil {
		logs.Logger.WithError(err).Fatal("server stopped")
	}
}
