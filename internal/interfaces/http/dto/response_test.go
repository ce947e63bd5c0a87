package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListResponse(t *testing.T) {
	t.Run("omits source when empty", func(t *testing.T) {
		body, err := json.Marshal(NewListResponse([]string{"a"}, 1, ""))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":["a"],"count":1}`, string(body))
	})

	t.Run("carries source", func(t *testing.T) {
		body, err := json.Marshal(NewListResponse([]int{}, 0, "json_fallback"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":[],"count":0,"source":"json_fallback"}`, string(body))
	})

	t.Run("nil data becomes an empty array", func(t *testing.T) {
		body, err := json.Marshal(NewListResponse(nil, 0, ""))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":[],"count":0}`, string(body))
	})
}

func TestNewErrorResponse(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse("Failed to fetch vendors", errors.New("connection refused")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Failed to fetch vendors","details":"connection refused"}`, string(body))

	body, err = json.Marshal(NewErrorResponse("Method not allowed", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Method not allowed"}`, string(body))
}
