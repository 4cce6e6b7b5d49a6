package schoolapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aminofabian/squlll/core/fees"
	"github.com/aminofabian/squlll/core/school"
)

var _ fees.Gateway = (*Client)(nil)

const feeBucketFields = `id name description isActive createdAt`

const createFeeBucketMutation = `mutation CreateFeeBucket($input: CreateFeeBucketInput!) {
  createFeeBucket(input: $input) { ` + feeBucketFields + ` }
}`

func (c *Client) CreateFeeBucket(ctx context.Context, nb fees.NewFeeBucket) (school.FeeBucket, error) {
	var data struct {
		CreateFeeBucket school.FeeBucket `json:"createFeeBucket"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{"name": nb.Name, "description": nb.Description},
	}
	if err := c.graphql(ctx, "create fee bucket", createFeeBucketMutation, vars, &data); err != nil {
		return school.FeeBucket{}, err
	}
	return data.CreateFeeBucket, nil
}

const updateFeeBucketMutation = `mutation UpdateFeeBucket($id: String!, $input: UpdateFeeBucketInput!) {
  updateFeeBucket(id: $id, input: $input) { ` + feeBucketFields + ` }
}`

func (c *Client) UpdateFeeBucket(ctx context.Context, id string, ub fees.UpdateFeeBucket) (school.FeeBucket, error) {
	var data struct {
		UpdateFeeBucket school.FeeBucket `json:"updateFeeBucket"`
	}
	input := map[string]interface{}{"name": ub.Name, "description": ub.Description}
	if ub.IsActive != nil {
		input["isActive"] = *ub.IsActive
	}
	vars := map[string]interface{}{"id": id, "input": input}
	if err := c.graphql(ctx, "update fee bucket", updateFeeBucketMutation, vars, &data); err != nil {
		return school.FeeBucket{}, err
	}
	return data.UpdateFeeBucket, nil
}

const deleteFeeBucketMutation = `mutation DeleteFeeBucket($id: String!) {
  deleteFeeBucket(id: $id)
}`

func (c *Client) DeleteFeeBucket(ctx context.Context, id string) (bool, error) {
	var data struct {
		DeleteFeeBucket bool `json:"deleteFeeBucket"`
	}
	if err := c.graphql(ctx, "delete fee bucket", deleteFeeBucketMutation, map[string]interface{}{"id": id}, &data); err != nil {
		return false, err
	}
	return data.DeleteFeeBucket, nil
}

const createFeeStructureMutation = `mutation CreateFeeStructure($input: CreateFeeStructureInput!) {
  createFeeStructure(input: $input) {
    id
    name
    academicYear { id }
    term { id }
  }
}`

func (c *Client) CreateFeeStructure(ctx context.Context, ns fees.NewFeeStructure) (fees.FeeStructure, error) {
	var data struct {
		CreateFeeStructure struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			AcademicYear struct {
				ID string `json:"id"`
			} `json:"academicYear"`
			Term struct {
				ID string `json:"id"`
			} `json:"term"`
		} `json:"createFeeStructure"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"name":           ns.Name,
			"academicYearId": ns.AcademicYearID,
			"termId":         ns.TermID,
		},
	}
	if err := c.graphql(ctx, "create fee structure", createFeeStructureMutation, vars, &data); err != nil {
		return fees.FeeStructure{}, err
	}
	created := data.CreateFeeStructure
	return fees.FeeStructure{
		ID:             created.ID,
		Name:           created.Name,
		AcademicYearID: created.AcademicYear.ID,
		TermID:         created.Term.ID,
		GradeLevelID:   ns.GradeLevelID,
	}, nil
}

// CreateFeeStructureFallback creates a fee structure through the REST endpoint, carrying the grade
// and boarding type. It has the fees.FallbackCreator signature.
func (c *Client) CreateFeeStructureFallback(ctx context.Context, ns fees.NewFeeStructure) (string, error) {
	var resp struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, "create fee structure", http.MethodPost, c.conf.FeeStructuresPath, ns, &resp); err != nil {
		return "", err
	}
	if resp.ID != "" {
		return resp.ID, nil
	}
	return resp.Data.ID, nil
}

const createFeeStructureItemMutation = `mutation CreateFeeStructureItem($input: CreateFeeStructureItemInput!) {
  createFeeStructureItem(input: $input) {
    id
    amount
    isMandatory
  }
}`

func (c *Client) CreateFeeStructureItem(ctx context.Context, ni fees.NewFeeStructureItem) (fees.FeeStructureItem, error) {
	var data struct {
		CreateFeeStructureItem struct {
			ID          string      `json:"id"`
			Amount      json.Number `json:"amount"`
			IsMandatory bool        `json:"isMandatory"`
		} `json:"createFeeStructureItem"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"feeStructureId": ni.FeeStructureID,
			"feeBucketId":    ni.FeeBucketID,
			"amount":         json.Number(ni.Amount.String()),
			"isMandatory":    ni.IsMandatory,
		},
	}
	if err := c.graphql(ctx, "create fee structure item", createFeeStructureItemMutation, vars, &data); err != nil {
		return fees.FeeStructureItem{}, err
	}
	return fees.FeeStructureItem{
		ID:             data.CreateFeeStructureItem.ID,
		FeeStructureID: ni.FeeStructureID,
		FeeBucketID:    ni.FeeBucketID,
		Amount:         ni.Amount,
		IsMandatory:    data.CreateFeeStructureItem.IsMandatory,
	}, nil
}

const feeBucketsQuery = `query FeeBuckets {
  feeBuckets { ` + feeBucketFields + ` }
}`

func (c *Client) ListFeeBuckets(ctx context.Context) ([]school.FeeBucket, error) {
	var data struct {
		FeeBuckets []school.FeeBucket `json:"feeBuckets"`
	}
	if err := c.graphql(ctx, "list fee buckets", feeBucketsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.FeeBuckets, nil
}
