// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package outgraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/model"
)

func TestWriteJSON_ReadJSON_RoundTrips(t *testing.T) {
	b := NewBuilder()
	b.AddArc(model.CallableId(1), model.CallableId(2))
	b.AddArc(model.CallableId(1), model.CallableId(3))
	b.AddNode(model.CallableId(4))
	orig := b.Freeze()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, orig))

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, orig.Nodes(), got.Nodes())
	assert.Equal(t, orig.Arcs(), got.Arcs())
}

func TestReadJSON_RejectsMalformed(t *testing.T) {
	_, err := ReadJSON(bytes.NewBufferString("{not json"))
	assert.Error(t, err)
}

func TestWriteJSON_ContainsFieldNames(t *testing.T) {
	b := NewBuilder()
	b.AddArc(model.CallableId(1), model.CallableId(2))
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, b.Freeze()))
	assert.Contains(t, buf.String(), `"nodes"`)
	assert.Contains(t, buf.String(), `"arcs"`)
}
