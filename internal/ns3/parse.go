package ns3

import (
	"fmt"
	"strconv"
	"strings"
)

const nodeListPrefix = "/NodeList/"

// ParseContextNodeID extracts the node id from a rendered trace-context
// path such as "/NodeList/7/$ns3::MobilityModel/CourseChange". The path
// must start with /NodeList/ followed by a decimal id; anything else is an
// error. Only trace hosts that still key events by context string need
// this; everything downstream works with typed node ids.
func ParseContextNodeID(context string) (uint32, error) {
	if !strings.HasPrefix(context, nodeListPrefix) {
		return 0, fmt.Errorf("context %q does not start with %s", context, nodeListPrefix)
	}
	rest := context[len(nodeListPrefix):]
	end := strings.IndexByte(rest, '/')
	if end == -1 {
		end = len(rest)
	}
	if end == 0 {
		return 0, fmt.Errorf("context %q has an empty node id", context)
	}
	id, err := strconv.ParseUint(rest[:end], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("context %q: bad node id: %w", context, err)
	}
	return uint32(id), nil
}
