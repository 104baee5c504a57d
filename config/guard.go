package config

import (
	"strings"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

// GuardConfig overrides the routing guard's groups and policy.
type GuardConfig struct {
	GuestsBlockedFromProtected bool     `env:"GUESTS_BLOCKED_FROM_PROTECTED" envDefault:"true"`
	AuthGroup                  string   `env:"AUTH_GROUP"                    envDefault:"(auth)"`
	ProtectedGroups            []string `env:"PROTECTED_GROUPS"              envDefault:"reservation"`
	HomeGroup                  string   `env:"HOME_GROUP"                    envDefault:"home"`
	SignInPath                 string   `env:"SIGN_IN_PATH"                  envDefault:"/sign-in"`
	HomePath                   string   `env:"HOME_PATH"                     envDefault:"/home"`
	ReturnParam                string   `env:"RETURN_PARAM"                  envDefault:"redirect"`
}

// Sanitize falls back to the app's navigation tree for empty values.
func (c *GuardConfig) Sanitize() {
	def := domainauth.DefaultRouteTable
	c.AuthGroup = orDefault(c.AuthGroup, def.AuthGroup)
	c.HomeGroup = orDefault(c.HomeGroup, def.HomeGroup)
	c.SignInPath = orDefault(c.SignInPath, def.SignInPath)
	c.HomePath = orDefault(c.HomePath, def.HomePath)
	c.ReturnParam = orDefault(c.ReturnParam, def.ReturnParam)

	groups := make([]string, 0, len(c.ProtectedGroups))
	for _, g := range c.ProtectedGroups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		groups = append(groups, def.ProtectedGroups...)
	}
	c.ProtectedGroups = groups
}

// Guard builds the routing guard.
func (c *GuardConfig) Guard() domainauth.Guard {
	return domainauth.NewGuard(domainauth.RouteTable{
		AuthGroup:       c.AuthGroup,
		ProtectedGroups: c.ProtectedGroups,
		HomeGroup:       c.HomeGroup,
		SignInPath:      c.SignInPath,
		HomePath:        c.HomePath,
		ReturnParam:     c.ReturnParam,
	}, domainauth.GuardPolicy{GuestsBlockedFromProtected: c.GuestsBlockedFromProtected})
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
