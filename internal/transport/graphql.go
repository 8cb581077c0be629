package transport

import (
	"context"
	"encoding/json"

	"github.com/agentstation/studiosync/pkg/errors"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL posts query to endpoint and decodes the data member into target.
// A non-empty errors member is returned as a GraphQLError.
func (c *Client) GraphQL(ctx context.Context, endpoint, query string, variables map[string]any, target any) error {
	var resp graphqlResponse
	if err := c.PostJSON(ctx, endpoint, graphqlRequest{Query: query, Variables: variables}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		gqlErr := &errors.GraphQLError{Endpoint: endpoint}
		for _, e := range resp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if target == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
