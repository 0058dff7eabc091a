package commands

import (
	"chatlog/internal/cli/api"
	"chatlog/internal/config"
)

// newClient создаёт API-клиента по адресу сервера из конфигурации.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.ServerURL)
}
