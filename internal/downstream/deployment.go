package downstream

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type DeployRequest struct {
	DeploymentID   uuid.UUID         `json:"deploymentId"`
	Template       string            `json:"template"`
	TemplateType   string            `json:"templateType"`
	ProjectName    string            `json:"projectName"`
	AWSCredentials map[string]string `json:"awsCredentials,omitempty"`
	Region         string            `json:"region"`
}

type DestroyRequest struct {
	DeploymentID uuid.UUID `json:"deploymentId"`
	StateURL     string    `json:"stateUrl,omitempty"`
}

// DeploymentReport is the deployment service's view of one deployment.
type DeploymentReport struct {
	DeploymentID  string `json:"deploymentId"`
	Status        string `json:"status"`
	DeploymentURL string `json:"deploymentUrl"`
	StateURL      string `json:"stateUrl"`
	ErrorMessage  string `json:"errorMessage"`
	Logs          string `json:"logs"`
	DeployedAt    string `json:"deployedAt"`
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999"}

// DeployedTime parses DeployedAt, which may lack a zone; zoneless values are UTC.
func (r *DeploymentReport) DeployedTime() *time.Time {
	if r.DeployedAt == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.DeployedAt); err == nil {
			return &t
		}
	}
	return nil
}

type DeploymentClient interface {
	Deploy(ctx context.Context, req DeployRequest) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Destroy(ctx context.Context, req DestroyRequest) error
	Status(ctx context.Context, id uuid.UUID) (*DeploymentReport, error)
}

type deploymentClient struct{ *client }

func NewDeploymentClient(baseURL string, timeout time.Duration) DeploymentClient {
	return &deploymentClient{newClient("deployment", baseURL, timeout)}
}

func (c *deploymentClient) Deploy(ctx context.Context, req DeployRequest) error {
	return c.call(ctx, "deploy", http.MethodPost, "/deploy", req, nil)
}

func (c *deploymentClient) Cancel(ctx context.Context, id uuid.UUID) error {
	body := map[string]uuid.UUID{"deploymentId": id}
	return c.call(ctx, "cancel", http.MethodPost, "/cancel", body, nil)
}

func (c *deploymentClient) Destroy(ctx context.Context, req DestroyRequest) error {
	return c.call(ctx, "destroy", http.MethodPost, "/destroy", req, nil)
}

func (c *deploymentClient) Status(ctx context.Context, id uuid.UUID) (*DeploymentReport, error) {
	var out DeploymentReport
	if err := c.call(ctx, "status", http.MethodGet, "/deployment/"+id.String()+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
