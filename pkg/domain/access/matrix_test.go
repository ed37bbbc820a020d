package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timedealhq/creditbot/pkg/domain/access"
)

func TestTierFromRoles_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  access.Tier
	}{
		{"no grants", nil, access.TierNone},
		{"single staff", []string{"staff"}, access.TierStaff},
		{"single manager", []string{"manager"}, access.TierManager},
		{"single tag_manager", []string{"tag_manager"}, access.TierTagManager},
		{"single owners", []string{"owners"}, access.TierOwners},
		{"owners beats everything", []string{"staff", "manager", "tag_manager", "owners"}, access.TierOwners},
		{"tag_manager beats manager", []string{"manager", "tag_manager"}, access.TierTagManager},
		{"manager beats staff", []string{"staff", "manager"}, access.TierManager},
		{"unknown role ignored", []string{"janitor"}, access.TierNone},
		{"unknown mixed with staff", []string{"janitor", "staff"}, access.TierStaff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.TierFromRoles(tt.roles))
		})
	}
}

func TestCanUse_AlwaysAllowed(t *testing.T) {
	tiers := []access.Tier{
		access.TierNone,
		access.TierStaff,
		access.TierManager,
		access.TierTagManager,
		access.TierOwners,
	}

	for _, tier := range tiers {
		t.Run(tier.String(), func(t *testing.T) {
			assert.True(t, access.CanUse(tier, access.CommandCredits))
			assert.True(t, access.CanUse(tier, access.CommandCreditsLeaderboard))
		})
	}
}

func TestCanUse_Matrix(t *testing.T) {
	tests := []struct {
		name string
		tier access.Tier
		cmd  access.Command
		want bool
	}{
		{"none denied addcredits", access.TierNone, access.CommandAddCredits, false},
		{"none denied ranks", access.TierNone, access.CommandRanks, false},

		{"staff allowed addcredits", access.TierStaff, access.CommandAddCredits, true},
		{"staff allowed subcredits", access.TierStaff, access.CommandSubCredits, true},
		{"staff denied setcredits", access.TierStaff, access.CommandSetCredits, false},
		{"staff denied whitelist", access.TierStaff, access.CommandWhitelist, false},
		{"staff denied setrank", access.TierStaff, access.CommandSetRank, false},
		{"staff denied wipecredits", access.TierStaff, access.CommandWipeCredits, false},

		{"manager allowed setcredits", access.TierManager, access.CommandSetCredits, true},
		{"manager denied whitelist", access.TierManager, access.CommandWhitelist, false},
		{"manager denied unwhitelist", access.TierManager, access.CommandUnwhitelist, false},
		{"manager denied ranks", access.TierManager, access.CommandRanks, false},
		{"manager denied rankall", access.TierManager, access.CommandRankAll, false},

		{"tag_manager allowed setcredits", access.TierTagManager, access.CommandSetCredits, true},
		{"tag_manager allowed setrank", access.TierTagManager, access.CommandSetRank, true},
		{"tag_manager allowed rankall", access.TierTagManager, access.CommandRankAll, true},
		{"tag_manager denied whitelist", access.TierTagManager, access.CommandWhitelist, false},
		{"tag_manager denied wipecredits", access.TierTagManager, access.CommandWipeCredits, false},

		{"owners allowed whitelist", access.TierOwners, access.CommandWhitelist, true},
		{"owners allowed wipecredits", access.TierOwners, access.CommandWipeCredits, true},
		{"owners allowed rankall", access.TierOwners, access.CommandRankAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanUse(tt.tier, tt.cmd))
		})
	}
}
