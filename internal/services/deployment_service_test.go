package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/testutil"
	appErr "github.com/autostack/gateway/pkg/errors"
)

func TestDeployStartsRunning(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	p := testutil.CreateProject(t, e.db, alice, "Shop")
	tpl := testutil.CreateTemplate(t, e.db, p, "10")

	e.deployClient.On("Deploy", mock.Anything, mock.MatchedBy(func(req downstream.DeployRequest) bool {
		return req.Template == tpl.TemplateContent && req.ProjectName == "Shop" && req.Region == "eu-west-1" &&
			req.AWSCredentials["access_key_id"] == "AKIA"
	})).Return(nil).Once()

	d, err := e.deployment.Deploy(ctx, alice.ID, &DeployInput{
		TemplateID:     tpl.ID,
		Region:         "eu-west-1",
		AWSCredentials: map[string]string{"access_key_id": "AKIA"},
	})
	require.NoError(t, err)
	require.Equal(t, models.DeploymentRunning, d.Status)
	require.Equal(t, "eu-west-1", d.Region)

	list, total, err := e.deployment.List(ctx, alice.ID, &DeploymentFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
}

func TestDeployFailureRecordsFailedDeployment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	p := testutil.CreateProject(t, e.db, alice, "Shop")
	tpl := testutil.CreateTemplate(t, e.db, p, "10")

	e.deployClient.On("Deploy", mock.Anything, mock.Anything).Return(unavailable()).Once()

	_, err := e.deployment.Deploy(ctx, alice.ID, &DeployInput{TemplateID: tpl.ID})
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	list, err := e.deployment.ListByProject(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.DeploymentFailed, list[0].Status)
	require.Equal(t, DeployFailedMessage, list[0].ErrorMessage)
	require.Equal(t, "us-west-2", list[0].Region)
}

func TestDeployForeignTemplate(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	bob := testutil.CreateUser(t, e.db, "bob@example.com", models.TierStarter)
	tpl := testutil.CreateTemplate(t, e.db, testutil.CreateProject(t, e.db, alice, "Shop"), "10")

	_, err := e.deployment.Deploy(context.Background(), bob.ID, &DeployInput{TemplateID: tpl.ID})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestCancelAllowedStatuses(t *testing.T) {
	cases := map[models.DeploymentStatus]bool{
		models.DeploymentPending:    true,
		models.DeploymentRunning:    true,
		models.DeploymentCompleted:  false,
		models.DeploymentFailed:     false,
		models.DeploymentCancelled:  false,
		models.DeploymentDestroying: false,
		models.DeploymentDestroyed:  false,
	}
	for status, allowed := range cases {
		t.Run(string(status), func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
			d := testutil.CreateDeployment(t, e.db, testutil.CreateTemplate(t, e.db, testutil.CreateProject(t, e.db, alice, "P"), "1"), status)

			if allowed {
				e.deployClient.On("Cancel", mock.Anything, d.ID).Return(nil).Once()
			}
			got, err := e.deployment.Cancel(ctx, d.ID, alice.ID)
			if !allowed {
				require.True(t, appErr.IsCode(err, appErr.CodePreconditionFailed))
				require.Contains(t, err.Error(), "cannot cancel deployment in current status")
				return
			}
			require.NoError(t, err)
			require.Equal(t, models.DeploymentCancelled, got.Status)
		})
	}
}

func TestDestroyOnlyFromCompleted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	tpl := testutil.CreateTemplate(t, e.db, testutil.CreateProject(t, e.db, alice, "P"), "1")
	running := testutil.CreateDeployment(t, e.db, tpl, models.DeploymentRunning)
	done := testutil.CreateDeployment(t, e.db, tpl, models.DeploymentCompleted)

	_, err := e.deployment.Destroy(ctx, running.ID, alice.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePreconditionFailed))
	require.Contains(t, err.Error(), "only completed deployments can be destroyed")

	e.deployClient.On("Destroy", mock.Anything, downstream.DestroyRequest{DeploymentID: done.ID, StateURL: done.TerraformStateURL}).
		Return(nil).Once()
	got, err := e.deployment.Destroy(ctx, done.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.DeploymentDestroying, got.Status)
}

func TestDownstreamFailureLeavesStatusUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	tpl := testutil.CreateTemplate(t, e.db, testutil.CreateProject(t, e.db, alice, "P"), "1")
	running := testutil.CreateDeployment(t, e.db, tpl, models.DeploymentRunning)
	done := testutil.CreateDeployment(t, e.db, tpl, models.DeploymentCompleted)

	e.deployClient.On("Cancel", mock.Anything, running.ID).Return(unavailable()).Once()
	e.deployClient.On("Destroy", mock.Anything, mock.Anything).Return(unavailable()).Once()

	_, err := e.deployment.Cancel(ctx, running.ID, alice.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	_, err = e.deployment.Destroy(ctx, done.ID, alice.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	st, err := e.deployment.Status(ctx, running.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.DeploymentRunning, st.Status)
	require.False(t, st.Terminal)
	st, err = e.deployment.Status(ctx, done.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.DeploymentCompleted, st.Status)
}

func TestDeploymentReadsAreOwned(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierStarter)
	bob := testutil.CreateUser(t, e.db, "bob@example.com", models.TierStarter)
	d := testutil.CreateDeployment(t, e.db, testutil.CreateTemplate(t, e.db, testutil.CreateProject(t, e.db, alice, "P"), "1"), models.DeploymentFailed)

	_, err := e.deployment.Status(ctx, d.ID, bob.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = e.deployment.Logs(ctx, d.ID, bob.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = e.deployment.Cancel(ctx, d.ID, bob.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	st, err := e.deployment.Status(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, st.Terminal)
}
