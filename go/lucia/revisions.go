// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lucia

import (
	"encoding/json"
	"fmt"
	"regexp"
)

func (r Revision) String() string {
	switch r {
	case R00_Frontier:
		return "Frontier"
	case R01_Homestead:
		return "Homestead"
	case R02_EIP150:
		return "EIP150"
	case R03_EIP160:
		return "EIP160"
	default:
		return fmt.Sprintf("Revision(%d)", r)
	}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	revString := r.String()
	reg := regexp.MustCompile(`Revision\([0-9]+\)`)
	if reg.MatchString(revString) {
		return nil, &json.UnsupportedValueError{}
	}
	return json.Marshal(revString)
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}
	revision, err := ParseRevision(s)
	if err != nil {
		return err
	}
	*r = revision
	return nil
}

// ParseRevision resolves the name of a revision as produced by String.
func ParseRevision(name string) (Revision, error) {
	switch name {
	case "Frontier":
		return R00_Frontier, nil
	case "Homestead":
		return R01_Homestead, nil
	case "EIP150":
		return R02_EIP150, nil
	case "EIP160":
		return R03_EIP160, nil
	}
	return 0, fmt.Errorf("unknown revision: %q", name)
}

// IsHomestead is true for all revisions including the Homestead rules.
func (r Revision) IsHomestead() bool {
	return r >= R01_Homestead
}
