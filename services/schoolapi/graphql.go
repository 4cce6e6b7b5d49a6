package schoolapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
)

type (
	graphQLRequest struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables,omitempty"`
	}

	graphQLError struct {
		Message    string `json:"message"`
		Extensions struct {
			Details json.RawMessage `json:"details"`
		} `json:"extensions"`
	}

	graphQLResponse struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
)

// graphql runs query and decodes its `data` into out.
// A non-empty `errors` array fails the call even when the response status is 200.
func (c *Client) graphql(ctx context.Context, op, query string, vars map[string]interface{}, out interface{}) error {
	var resp graphQLResponse
	if err := c.do(ctx, op, http.MethodPost, c.conf.GraphQLPath, graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return &core.APIError{Op: op, Message: graphQLMessage(resp.Errors)}
	}
	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return &core.APIError{Op: op, Message: "response has no data"}
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errors.Wrap(err, op+": decoding data")
	}
	return nil
}

func graphQLMessage(errs []graphQLError) string {
	first := errs[0]
	if msg := detailsMessage(first.Extensions.Details); msg != "" {
		return msg
	}
	if strings.TrimSpace(first.Message) != "" {
		return first.Message
	}
	return "request failed"
}
