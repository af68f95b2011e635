package lockmgr

import (
	"fmt"
	"strings"
)

// String renders the dump. Output is a pure function of the dump contents:
// partitions in bucket order, requests in FIFO order, so re-running against
// the same snapshot is byte-identical.
func (d *Dump) String() string {
	if len(d.Partitions) == 0 {
		return "no strong locks held or pending\n"
	}

	var sb strings.Builder
	sb.WriteString("LockManager dump:\n")
	for _, p := range d.Partitions {
		fmt.Fprintf(&sb, "partition %d:\n", p.Index)
		for _, res := range p.Resources {
			writeResource(&sb, res)
		}
	}
	return sb.String()
}

func writeResource(sb *strings.Builder, res Resource) {
	fmt.Fprintf(sb, "  resource %s:", res.ID)
	if res.Err != nil {
		fmt.Fprintf(sb, " <error: %v>\n", res.Err)
		return
	}
	sb.WriteString("\n")

	sb.WriteString("    granted:\n")
	for _, req := range res.Granted {
		writeRequest(sb, req)
	}
	if len(res.Pending) > 0 {
		sb.WriteString("    pending:\n")
		for _, req := range res.Pending {
			writeRequest(sb, req)
		}
	}
}

func writeRequest(sb *strings.Builder, req Request) {
	if req.Err != nil {
		fmt.Fprintf(sb, "      <error: %v>\n", req.Err)
		return
	}
	thread := fmt.Sprintf("thread %d (unresolved)", req.ThreadID)
	if !req.Unresolved {
		thread = fmt.Sprintf("thread %d %q", req.ThreadID, req.ThreadName)
	}
	fmt.Fprintf(sb, "      mode %s, status %s, %s, locker %d\n",
		req.Mode, req.Status, thread, req.LockerID)
}
