// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{ //nolint:exhaustivestruct
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// DumpValue renders v the same deterministic way regardless of map/slice iteration
// order or pointer identity, so two structurally-equal values dump identically.
func DumpValue(v interface{}) string {
	return spewConfig.Sdump(v)
}

// AssertEqualValues compares exp and act by their DumpValue output rather than
// reflect.DeepEqual, and on mismatch reports a unified diff instead of dumping both
// values in full. Useful for asserting on registration indexes and version lists,
// where a plain require.Equal failure buries the one differing field in a wall of
// JSON.
func AssertEqualValues(t *testing.T, exp, act interface{}) bool {
	t.Helper()

	expStr := DumpValue(exp)
	actStr := DumpValue(act)
	if expStr == actStr {
		return true
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{ //nolint:exhaustivestruct
		A:        difflib.SplitLines(expStr),
		B:        difflib.SplitLines(actStr),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	t.Errorf("values differ:\n%s", diff)
	return false
}
