package connection

// swapPort maps each well-known port to the other one. Proxies commonly
// expose one while the server listens on the other.
func swapPort(p int) int {
	switch p {
	case DefaultTLSPort:
		return DefaultPlainPort
	case DefaultPlainPort:
		return DefaultTLSPort
	default:
		return 0
	}
}

// Candidates builds the ordered, duplicate-free endpoint list for r:
// the configured pair first, then other hosts on the configured port,
// then the configured host on other ports, then everything else.
func Candidates(r Resolved) []Candidate {
	hosts := uniq([]string{r.Host, r.OriginHost})

	ports := []int{r.Port}
	if p := swapPort(r.Port); p != 0 {
		ports = append(ports, p)
	}
	if !r.PortSet {
		ports = append(ports, DefaultTLSPort, DefaultPlainPort)
	}
	ports = uniq(ports)
	if len(hosts) == 0 || len(ports) == 0 {
		return nil
	}

	var out []Candidate
	seen := map[Candidate]bool{}
	add := func(h string, p int) {
		c := Candidate{Host: h, Port: p, TLS: r.TLS}
		if h == "" || p <= 0 || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	h0, p0 := hosts[0], ports[0]
	add(h0, p0)
	for _, h := range hosts[1:] {
		add(h, p0)
	}
	for _, p := range ports[1:] {
		add(h0, p)
	}
	for _, h := range hosts[1:] {
		for _, p := range ports[1:] {
			add(h, p)
		}
	}
	return out
}

func uniq[T comparable](in []T) []T {
	var zero T
	out := make([]T, 0, len(in))
	seen := make(map[T]bool, len(in))
	for _, v := range in {
		if v == zero || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
