package security

// In-memory operator client registry (replace with DB/config later).
// These are service clients for the till-management surface, not machine
// users; machine users live in the directory.
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"till.read","till.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"ops-console":   {ID: "ops-console", Secret: "ops-console-secret", Perms: []string{"till.read", "till.write"}, Enabled: true},
	"fleet-monitor": {ID: "fleet-monitor", Secret: "fleet-monitor-secret", Perms: []string{"till.read"}, Enabled: true},
}
