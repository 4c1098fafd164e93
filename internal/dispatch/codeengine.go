package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"example.com/sttpipeline/internal/types"
	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/pkg/errors"
)

const (
	DefaultCodeEngineURL = "https://api.private.us-south.codeengine.cloud.ibm.com"
	codeEngineVersion    = "/v2"
)

// NormalizeBaseURL applies the default endpoint and makes sure the URL ends
// with the API version segment.
func NormalizeBaseURL(u string) string {
	if u == "" {
		u = DefaultCodeEngineURL
	}
	u = strings.TrimRight(u, "/")
	if !strings.HasSuffix(u, codeEngineVersion) {
		u += codeEngineVersion
	}
	return u
}

type CodeEngineConfig struct {
	APIKey    string
	BaseURL   string
	ProjectID string
	JobName   string
	// Entrypoint is passed as the first run argument so the job image knows
	// which program to start.
	Entrypoint string
}

// CodeEngineLauncher creates job runs of a pre-defined IBM Code Engine job.
type CodeEngineLauncher struct {
	cfg CodeEngineConfig
	// Authenticator overrides IAM API key authentication.
	Authenticator core.Authenticator
}

func NewCodeEngineLauncher(cfg CodeEngineConfig) *CodeEngineLauncher {
	return &CodeEngineLauncher{cfg: cfg}
}

func (c *CodeEngineLauncher) service() (*core.BaseService, error) {
	auth := c.Authenticator
	if auth == nil {
		auth = &core.IamAuthenticator{ApiKey: c.cfg.APIKey}
	}
	if err := auth.Validate(); err != nil {
		return nil, errors.Wrap(err, "code engine authenticator")
	}
	svc, err := core.NewBaseService(&core.ServiceOptions{
		URL:           NormalizeBaseURL(c.cfg.BaseURL),
		Authenticator: auth,
	})
	return svc, errors.Wrap(err, "code engine service")
}

func (c *CodeEngineLauncher) Launch(ctx context.Context, req types.JobRequest) (types.JobRun, error) {
	svc, err := c.service()
	if err != nil {
		return types.JobRun{}, err
	}

	builder := core.NewRequestBuilder(core.POST)
	builder = builder.WithContext(ctx)
	_, err = builder.ResolveRequestURL(svc.GetServiceURL(), `/projects/{project_id}/job_runs`, map[string]string{
		"project_id": c.cfg.ProjectID,
	})
	if err != nil {
		return types.JobRun{}, errors.Wrap(err, "job run url")
	}
	builder.AddHeader("Accept", "application/json")
	builder.AddHeader("Content-Type", "application/json")
	_, err = builder.SetBodyContentJSON(map[string]interface{}{
		"job_name":      c.cfg.JobName,
		"run_arguments": []string{c.cfg.Entrypoint, req.FileID, req.FileName},
	})
	if err != nil {
		return types.JobRun{}, errors.Wrap(err, "job run body")
	}
	request, err := builder.Build()
	if err != nil {
		return types.JobRun{}, errors.Wrap(err, "job run request")
	}

	var raw map[string]json.RawMessage
	if _, err := svc.Request(request, &raw); err != nil {
		return types.JobRun{}, errors.Wrap(err, "create job run")
	}
	var id string
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &id); err != nil {
			return types.JobRun{}, errors.Wrap(err, "job run id")
		}
	}
	if id == "" {
		return types.JobRun{}, ErrNoRunID
	}
	return types.JobRun{ID: id, Status: types.RunAccepted}, nil
}
