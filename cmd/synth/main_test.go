// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import "testing"

func TestLearnCmd_RegistersSearchFlags(t *testing.T) {
	// learn drives the same solve loop as solve; without these flags its
	// searches would run with a zero beam and no per-task timeout.
	for _, name := range []string{"beam", "depth", "timeout"} {
		if learnCmd.Flags().Lookup(name) == nil {
			t.Errorf("learn is missing the --%s flag", name)
		}
	}
	if f := learnCmd.Flags().Lookup("timeout"); f != nil && f.DefValue != "10s" {
		t.Errorf("learn --timeout default = %s, want 10s", f.DefValue)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"anti_unification", "egraph", "fragment_grammar"} {
		s, err := parseStrategy(name)
		if err != nil {
			t.Errorf("parseStrategy(%q): %v", name, err)
		}
		if s.String() != name {
			t.Errorf("parseStrategy(%q) = %v", name, s)
		}
	}
	if _, err := parseStrategy("bogus"); err == nil {
		t.Error("parseStrategy accepted an unknown strategy")
	}
}
