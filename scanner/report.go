package scanner

// HostReport lists the open ports of one address in catalog order.
type HostReport struct {
	Address string
	Open    []uint16
}

// Report is the result of one scan, hosts in target order.
type Report struct {
	Hosts []HostReport
}

// OpenCount is the total number of open ports across all hosts.
func (r *Report) OpenCount() int {
	n := 0
	for _, h := range r.Hosts {
		n += len(h.Open)
	}
	return n
}
