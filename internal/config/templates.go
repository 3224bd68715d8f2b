package config

import (
	"fmt"
	"os"
)

func Template() string {
	return deskTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(deskTemplate), 0o600)
}

const deskTemplate = `product_name = "Service Desk"
fqdn = "desk.example.com"
system_id = "10"
addr = ":8080"
cors_origins = ["http://localhost:3000"]
default_language = "en"

[frontend]
baselink = "/desk/index?"

[session]
name = "DeskSessionID"
store = "memory"
use_cookie = true
max_idle_time = "2h"

[ticket]
hook = "Ticket#"

[database]
driver = "sqlite"
dsn = "file:deskctl.db?_pragma=busy_timeout(5000)"

[notification.agent_session_limit]
enabled = false
limit = 100
prior_warning = 90

[header_meta.agent_ticket_search]
enabled = true
action = "AgentTicketSearch"
`
