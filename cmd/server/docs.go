package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           League Trades API
// @version         0.1.0
// @description     Trade proposals, responses, execution, reversal and per-team trade limits.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
