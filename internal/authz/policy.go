// Package authz holds the authorization policy as a plain function over
// (user, resource, action), independent of HTTP plumbing.
package authz

import "github.com/warefront/api/internal/enum"

// Resources checked by route middleware.
const (
	ResourceOrders         = "orders"
	ResourcePacking        = "packing"
	ResourceStockControl   = "stock-control"
	ResourceQualityControl = "quality-control"
	ResourceReports        = "reports"
	ResourceExceptions     = "exceptions"
	ResourceAdmin          = "admin"
	ResourceNotifications  = "notifications"
)

// Actions.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionExecute = "execute" // state-machine operations (claim/pick/pack/...)
)

// User is the minimal identity the policy needs.
type User struct {
	EffectiveRole string
}

type permission struct {
	resource string
	action   string
}

// grants lists what each non-admin role may do. ADMIN is allowed everything.
var grants = map[string][]permission{
	enum.RoleSupervisor: {
		{ResourceOrders, ActionRead},
		{ResourceOrders, ActionWrite},
		{ResourceOrders, ActionExecute},
		{ResourcePacking, ActionExecute},
		{ResourceStockControl, ActionRead},
		{ResourceStockControl, ActionWrite},
		{ResourceQualityControl, ActionRead},
		{ResourceQualityControl, ActionWrite},
		{ResourceReports, ActionRead},
		{ResourceExceptions, ActionRead},
		{ResourceExceptions, ActionWrite},
		{ResourceNotifications, ActionRead},
	},
	enum.RolePicker: {
		{ResourceOrders, ActionRead},
		{ResourceOrders, ActionExecute},
		{ResourceNotifications, ActionRead},
	},
	enum.RolePacker: {
		{ResourceOrders, ActionRead},
		{ResourcePacking, ActionExecute},
		{ResourceNotifications, ActionRead},
	},
	enum.RoleQA: {
		{ResourceOrders, ActionRead},
		{ResourceStockControl, ActionRead},
		{ResourceQualityControl, ActionRead},
		{ResourceQualityControl, ActionWrite},
		{ResourceExceptions, ActionRead},
		{ResourceNotifications, ActionRead},
	},
}

// Allow decides whether the user may perform action on resource.
func Allow(u User, resource, action string) bool {
	if u.EffectiveRole == enum.RoleAdmin {
		return true
	}
	for _, p := range grants[u.EffectiveRole] {
		if p.resource == resource && p.action == action {
			return true
		}
	}
	return false
}
