// This package is used to manage match criteria on a packet sent to the
// controller. The intent is that the criteria follows (closely matches) that
// used to specify match criteria in the `ovs-ofctl` command.
package criteria

import (
	"fmt"
	"strconv"
	"strings"
)

// Defines the bit patterns used to indicate which values are set in the
// match criteria structure.
const (
	BitEmpty  = 0x0
	BitDLType = 1 << 0
	BitInPort = 1 << 1
)

// Supported criteria terms
const (
	TermDLType = "dl_type"
	TermInPort = "in_port"
)

// Criteria maintains match criteria values along with a bit set to indicate
// which values are set.
type Criteria struct {
	Set    uint64
	DlType uint16
	InPort uint32
}

// Match compares match criteria against a given criteria to determine if
// there is a match and returns `true` if they match, else `false`. A match is
// defined as when all the values set in the target criteria are included in
// the state criteria and their values are equal. The state criteria may have
// additional values that are not in the target criteria and the values will
// still be considered matched.
func (c *Criteria) Match(state Criteria) bool {
	if c.Set&BitDLType > 0 && (state.Set&BitDLType == 0 || c.DlType != state.DlType) {
		return false
	}
	if c.Set&BitInPort > 0 && (state.Set&BitInPort == 0 || c.InPort != state.InPort) {
		return false
	}
	return true
}

// AddTerm parses a single `name=value` term into the criteria
func (c *Criteria) AddTerm(name, value string) error {
	switch strings.ToLower(name) {
	case TermDLType:
		dlType, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("Unable to convert term '%s' value '%s' to uint16 : %s", name, value, err)
		}
		c.Set |= BitDLType
		c.DlType = uint16(dlType)
	case TermInPort:
		inPort, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return fmt.Errorf("Unable to convert term '%s' value '%s' to uint32 : %s", name, value, err)
		}
		c.Set |= BitInPort
		c.InPort = uint32(inPort)
	default:
		return fmt.Errorf("Unknown criteria term '%s'", name)
	}
	return nil
}

func (c Criteria) String() string {
	var terms []string
	if c.Set&BitDLType > 0 {
		terms = append(terms, fmt.Sprintf("%s=0x%04x", TermDLType, c.DlType))
	}
	if c.Set&BitInPort > 0 {
		terms = append(terms, fmt.Sprintf("%s=%d", TermInPort, c.InPort))
	}
	return "[" + strings.Join(terms, ",") + "]"
}
