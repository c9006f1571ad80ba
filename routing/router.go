// Package routing provides the default jsonapi.Router implementation,
// building JSON:API convention URLs from a configured base URL.
package routing

import (
	"net/url"
	"strings"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/pathkit"

	"go.llib.dev/jsonapi"
)

// ErrMissingBaseURL is returned when URL building is attempted without a
// configured base URL.
const ErrMissingBaseURL errorkit.Error = "routing: missing base URL"

// Router builds URLs following the JSON:API conventions:
//
//	{base}/{type}                                  collection
//	{base}/{type}/{id[,id...]}                     resource(s)
//	{base}/{type}/{id}/relationships/{name}        relationship
//
// Query filters become filter[{field}] parameters; includes, sorting and
// pagination become include, sort and page[...] parameters.
type Router struct {
	// BaseURL is the API root every generated URL is relative to.
	// It may be reconfigured at any time; subsequently built URLs observe
	// the new value.
	BaseURL string
}

var _ jsonapi.Router = (*Router)(nil)

// URLForQuery returns the URL retrieving the resources the query describes.
func (r *Router) URLForQuery(q jsonapi.Query) (string, error) {
	base, err := r.base()
	if err != nil {
		return "", err
	}
	reqURL := pathkit.Join(base, q.ResourceType)
	if 0 < len(q.IDs) {
		reqURL = pathkit.Join(reqURL, strings.Join(q.IDs, ","))
	}
	params := url.Values{}
	for _, f := range q.Filters {
		params.Add("filter["+f.Field+"]", f.Value)
	}
	if 0 < len(q.Includes) {
		params.Set("include", strings.Join(q.Includes, ","))
	}
	if 0 < len(q.SortFields) {
		params.Set("sort", strings.Join(q.SortFields, ","))
	}
	for name, value := range q.PageParams {
		params.Set("page["+name+"]", value)
	}
	if len(params) == 0 {
		return reqURL, nil
	}
	return reqURL + "?" + params.Encode(), nil
}

// URLForResourceType returns the collection URL of a resource type.
func (r *Router) URLForResourceType(typeName string) (string, error) {
	base, err := r.base()
	if err != nil {
		return "", err
	}
	return pathkit.Join(base, typeName), nil
}

// URLForRelationship returns the relationship endpoint URL of a resource,
// optionally narrowed to the given related ids.
func (r *Router) URLForRelationship(relationshipName string, of *jsonapi.Resource, ids ...string) (string, error) {
	base, err := r.base()
	if err != nil {
		return "", err
	}
	reqURL := pathkit.Join(base, of.TypeName(), of.ID(), "relationships", relationshipName)
	if 0 < len(ids) {
		reqURL = pathkit.Join(reqURL, strings.Join(ids, ","))
	}
	return reqURL, nil
}

func (r *Router) base() (string, error) {
	if r.BaseURL == "" {
		return "", ErrMissingBaseURL
	}
	return r.BaseURL, nil
}
