package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonathan/careers-portal/internal/types"
)

// Upstream paths, relative to the base URL.
const (
	PathEducation  = "careers/education"
	PathExperience = "careers/experience"
	PathDependents = "careers/dependents"
	PathReferences = "careers/reference"
	PathProfiles   = "careers/entities"
	PathDetails    = "careers/entity_details"
)

// Filter is one condition of a list query.
type Filter struct {
	Operator string `json:"operator"`
	Target   string `json:"target"`
	Value    any    `json:"value"`
}

// Query is the body of a list request.
type Query struct {
	Filter []Filter `json:"filter"`
}

// Equals builds a query matching target = value.
func Equals(target string, value any) Query {
	return Query{Filter: []Filter{{Operator: "=", Target: target, Value: value}}}
}

// Resource is the remote collection of one record kind. It satisfies
// reconcile.Repository.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a record kind to its upstream path.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Path returns the upstream path of the resource.
func (r *Resource[T]) Path() string {
	return r.path
}

// List returns every record belonging to applicantID.
func (r *Resource[T]) List(ctx context.Context, applicantID string) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, Equals("applicant_id", applicantID), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Define creates or updates record. When the backend answers with an empty
// body the submitted record is returned unchanged.
func (r *Resource[T]) Define(ctx context.Context, record T) (T, error) {
	var out *T
	if err := r.client.do(ctx, http.MethodPost, r.path+"/define", record, &out); err != nil {
		var zero T
		return zero, err
	}
	if out == nil {
		return record, nil
	}
	return *out, nil
}

// Delete removes the records with the given ids in one call.
func (r *Resource[T]) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.client.do(ctx, http.MethodPost, r.path+"/delete", ids, nil)
}

// Resources groups the typed collections an application is made of.
type Resources struct {
	Education  *Resource[types.EducationRecord]
	Experience *Resource[types.ExperienceEntry]
	Dependents *Resource[types.DependentEntry]
	References *Resource[types.ReferenceEntry]
}

// Resources returns the typed collections served by c.
func (c *Client) Resources() Resources {
	return Resources{
		Education:  NewResource[types.EducationRecord](c, PathEducation),
		Experience: NewResource[types.ExperienceEntry](c, PathExperience),
		Dependents: NewResource[types.DependentEntry](c, PathDependents),
		References: NewResource[types.ReferenceEntry](c, PathReferences),
	}
}

// Profile fetches the applicant's personal information.
func (c *Client) Profile(ctx context.Context, applicantID string) (*types.Profile, error) {
	var out []types.Profile
	if err := c.do(ctx, http.MethodGet, PathProfiles, Equals("id", applicantID), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &Error{
			Method:     http.MethodGet,
			URL:        c.endpoint(PathProfiles),
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("applicant %s not found", applicantID),
		}
	}
	return &out[0], nil
}

// Details fetches the other personal details of the applicant. It returns
// nil without error when none were recorded.
func (c *Client) Details(ctx context.Context, applicantID string) (*types.ProfileDetails, error) {
	var out []types.ProfileDetails
	if err := c.do(ctx, http.MethodGet, PathDetails, Equals("applicant_id", applicantID), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}
