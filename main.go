package main

import (
	"meetbook/core/logger"
	"meetbook/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
