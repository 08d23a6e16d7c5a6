package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/autostack/gateway/pkg/errors"
)

func TestTierOrder(t *testing.T) {
	order := []Tier{TierFree, TierStarter, TierPro, TierEnterprise}
	for i, tier := range order {
		require.Equal(t, i, tier.Ordinal())
		for j, other := range order {
			require.Equal(t, i >= j, tier.AtLeast(other), "%s >= %s", tier, other)
		}
	}
	require.False(t, Tier("platinum").AtLeast(TierFree))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Pro ")
	require.NoError(t, err)
	require.Equal(t, TierPro, tier)

	_, err = ParseTier("gold")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestProjectQuota(t *testing.T) {
	require.Equal(t, 5, TierFree.ProjectQuota())
	require.Equal(t, 20, TierStarter.ProjectQuota())
	require.Equal(t, Unlimited, TierPro.ProjectQuota())
	require.Equal(t, Unlimited, TierEnterprise.ProjectQuota())
}

func TestCheckTier(t *testing.T) {
	require.NoError(t, CheckTier(TierPro, TierStarter))
	require.NoError(t, CheckTier(TierStarter, TierStarter))

	err := CheckTier(TierFree, TierStarter)
	ae, ok := appErr.As(err)
	require.True(t, ok)
	require.Equal(t, appErr.CodeTierRequired, ae.Code)
	require.Equal(t, "starter", ae.Meta["required_tier"])
	require.Equal(t, "free", ae.Meta["current_tier"])
}
