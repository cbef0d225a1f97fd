package cart

import "fmt"

// Kind tells which backend owns a cart.
type Kind string

const (
	KindDurable   Kind = "durable"
	KindEphemeral Kind = "ephemeral"
)

// Identity names the cart owner. A customer identity wins over a session.
type Identity struct {
	CustomerID string
	SessionID  string
}

func (i Identity) Kind() Kind {
	if i.CustomerID != "" {
		return KindDurable
	}
	return KindEphemeral
}

// Key addresses one cart within a tenant.
type Key struct {
	TenantID string
	Identity
}

func CustomerKey(tenantID, customerID string) Key {
	return Key{TenantID: tenantID, Identity: Identity{CustomerID: customerID}}
}

func SessionKey(tenantID, sessionID string) Key {
	return Key{TenantID: tenantID, Identity: Identity{SessionID: sessionID}}
}

func (k Key) Validate() error {
	if k.TenantID == "" {
		return ErrTenantRequired
	}
	if k.CustomerID == "" && k.SessionID == "" {
		return ErrIdentityRequired
	}
	return nil
}

func (k Key) String() string {
	if k.CustomerID != "" {
		return fmt.Sprintf("%s:customer:%s", k.TenantID, k.CustomerID)
	}
	return fmt.Sprintf("%s:session:%s", k.TenantID, k.SessionID)
}
