package authz

import (
	"testing"

	"github.com/warefront/api/internal/enum"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		role     string
		resource string
		action   string
		want     bool
	}{
		{enum.RoleAdmin, ResourceAdmin, ActionWrite, true},
		{enum.RoleAdmin, ResourceStockControl, ActionExecute, true},

		{enum.RoleSupervisor, ResourceOrders, ActionWrite, true},
		{enum.RoleSupervisor, ResourceStockControl, ActionWrite, true},
		{enum.RoleSupervisor, ResourceExceptions, ActionWrite, true},
		{enum.RoleSupervisor, ResourceAdmin, ActionWrite, false},

		{enum.RolePicker, ResourceOrders, ActionRead, true},
		{enum.RolePicker, ResourceOrders, ActionExecute, true},
		{enum.RolePicker, ResourceOrders, ActionWrite, false},
		{enum.RolePicker, ResourceStockControl, ActionWrite, false},
		{enum.RolePicker, ResourcePacking, ActionExecute, false},

		{enum.RolePacker, ResourcePacking, ActionExecute, true},
		{enum.RolePacker, ResourceOrders, ActionExecute, false},

		{enum.RoleQA, ResourceQualityControl, ActionWrite, true},
		{enum.RoleQA, ResourceStockControl, ActionRead, true},
		{enum.RoleQA, ResourceStockControl, ActionWrite, false},

		{"", ResourceOrders, ActionRead, false},
		{"UNKNOWN", ResourceOrders, ActionRead, false},
	}

	for _, c := range cases {
		got := Allow(User{EffectiveRole: c.role}, c.resource, c.action)
		if got != c.want {
			t.Errorf("Allow(%s, %s, %s) = %v, want %v", c.role, c.resource, c.action, got, c.want)
		}
	}
}
