// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNode_IsConstructor(t *testing.T) {
	cases := []struct {
		name string
		sig  Signature
		want bool
	}{
		{"constructor", "<init>(Ljava/lang/String;)V", true},
		{"clinit is not a constructor", "<clinit>()V", false},
		{"regular method", "doWork(I)V", false},
		{"empty signature", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := Node{TypeURI: "/java.lang/Object", Signature: tc.sig}
			assert.Equal(t, tc.want, n.IsConstructor())
		})
	}
}

func TestNode_ClinitSignature(t *testing.T) {
	n := Node{TypeURI: "/a/Sub", Signature: "<init>(I)V"}
	assert.Equal(t, Signature("<clinit>(I)V"), n.ClinitSignature())

	// Non-constructor signatures are returned unchanged.
	n2 := Node{TypeURI: "/a/Sub", Signature: "run()V"}
	assert.Equal(t, Signature("run()V"), n2.ClinitSignature())
}

func TestParseInvocationKind(t *testing.T) {
	cases := []struct {
		wire      uint8
		wantKind  InvocationKind
		wantKnown bool
	}{
		{0, InvocationVirtual, true},
		{1, InvocationInterface, true},
		{2, InvocationSpecial, true},
		{3, InvocationStatic, true},
		{4, InvocationDynamic, true},
		{255, InvocationStatic, false},
	}
	for _, tc := range cases {
		kind, known := ParseInvocationKind(tc.wire)
		assert.Equal(t, tc.wantKind, kind)
		assert.Equal(t, tc.wantKnown, known)
	}
}

func TestInvocationKind_String(t *testing.T) {
	assert.Equal(t, "virtual", InvocationVirtual.String())
	assert.Equal(t, "interface", InvocationInterface.String())
	assert.Equal(t, "special", InvocationSpecial.String())
	assert.Equal(t, "static", InvocationStatic.String())
	assert.Equal(t, "dynamic", InvocationDynamic.String())
	assert.Equal(t, "static", InvocationKind(99).String())
}
