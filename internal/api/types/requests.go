package types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// ProjectCreateRequest leaves name unvalidated so the service reports the
// missing field with its own message.
type ProjectCreateRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	RepositoryURL string `json:"repository_url" validate:"omitempty,url"`
	Language      string `json:"language"`
	Framework     string `json:"framework"`
}

type ProjectUpdateRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Description   *string `json:"description"`
	RepositoryURL *string `json:"repository_url" validate:"omitempty,url"`
	Language      *string `json:"language"`
	Framework     *string `json:"framework"`
	Status        *string `json:"status" validate:"omitempty,oneof=active archived"`
}

type AnalysisFileRequest struct {
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	StorageKey string `json:"storage_key"`
}

type AnalyzeRequest struct {
	ProjectID string                `json:"project_id" validate:"required,uuid"`
	Files     []AnalysisFileRequest `json:"files" validate:"required,min=1,dive"`
}

type GenerateTemplateRequest struct {
	ProjectID         string `json:"project_id" validate:"required,uuid"`
	TemplateType      string `json:"template_type" validate:"omitempty,oneof=terraform cdk"`
	OptimizationLevel string `json:"optimization_level" validate:"omitempty,oneof=basic balanced aggressive"`
}

type EstimateCostRequest struct {
	TemplateID string         `json:"template_id" validate:"omitempty,uuid"`
	Resources  map[string]any `json:"resources"`
	Region     string         `json:"region"`
}

type OptimizeRequest struct {
	OptimizationGoals []string `json:"optimization_goals"`
}

type DeployRequest struct {
	TemplateID     string            `json:"template_id" validate:"required,uuid"`
	Region         string            `json:"region"`
	AWSCredentials map[string]string `json:"aws_credentials"`
}

type AnalysisCallbackRequest struct {
	Status          string         `json:"status" validate:"required"`
	Language        string         `json:"language"`
	Framework       string         `json:"framework"`
	Dependencies    map[string]any `json:"dependencies"`
	Requirements    map[string]any `json:"requirements"`
	AnalysisResults map[string]any `json:"analysis_results"`
}

type DeploymentCallbackRequest struct {
	Status        string `json:"status" validate:"required"`
	DeploymentURL string `json:"deployment_url"`
	StateURL      string `json:"state_url"`
	ErrorMessage  string `json:"error_message"`
	Logs          string `json:"logs"`
	DeployedAt    string `json:"deployed_at"`
}
