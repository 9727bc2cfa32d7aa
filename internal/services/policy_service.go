package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/you/backoffice/domain"
)

// RoleAdmin is the role allowed to run sweeps and complete rows by hand.
const RoleAdmin = "role_admin"

// AdminPolicies are the rules seeded at startup for the operator endpoints.
var AdminPolicies = [][3]string{
	{RoleAdmin, "/admin/sweeps/*", "POST"},
	{RoleAdmin, "/admin/withdrawals/:id/complete", "POST"},
	{RoleAdmin, "/admin/deposits/:id/complete", "POST"},
	{RoleAdmin, "/admin/settlements/:id/complete", "POST"},
	{RoleAdmin, "/admin/settlements", "POST"},
}

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

// PolicyServiceImpl implements domain.PolicyService using Casbin
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer) *PolicyServiceImpl {
	return NewPolicyServiceWithEnforcer(NewCasbinEnforcerWrapper(enforcer))
}

// NewPolicyServiceWithEnforcer creates a new policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// EnsurePolicy implements domain.PolicyService. AddPolicy persists the rule
// through the adapter's auto-save and is a no-op when the rule exists.
func (p *PolicyServiceImpl) EnsurePolicy(role, resource, action string) error {
	_, err := p.enforcer.AddPolicy(role, resource, action)
	return err
}

// SeedPolicies ensures every rule in rules exists.
func SeedPolicies(p domain.PolicyService, rules [][3]string) error {
	for _, r := range rules {
		if err := p.EnsurePolicy(r[0], r[1], r[2]); err != nil {
			return fmt.Errorf("ensure policy %v: %w", r, err)
		}
	}
	return nil
}

var _ domain.PolicyService = (*PolicyServiceImpl)(nil)
