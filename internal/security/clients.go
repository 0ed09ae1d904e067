package security

import "github.com/aq2208/settlement-api/internal/entity"

// In-memory client registry (replace with DB/config later). Each API client
// maps to one role; its token carries that role's capabilities.
type Client struct {
	ID      string
	Secret  string
	Role    entity.Role
	Enabled bool
}

var Clients = map[string]Client{
	"storefront":   {ID: "storefront", Secret: "storefront-secret", Role: entity.RoleCustomer, Enabled: true},
	"seller-panel": {ID: "seller-panel", Secret: "seller-panel-secret", Role: entity.RoleSeller, Enabled: true},
	"ops-console":  {ID: "ops-console", Secret: "ops-console-secret", Role: entity.RoleAdmin, Enabled: true},
	"owner-cli":    {ID: "owner-cli", Secret: "owner-cli-secret", Role: entity.RoleOwner, Enabled: true},
}
