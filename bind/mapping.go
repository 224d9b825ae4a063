package bind

import "strings"

// Mapping ties an OSC address to a property path.
type Mapping struct {
	Name     string
	Address  string
	Datapath string
	Enabled  bool
}

// MappingSource supplies the ordered mapping rows. It is called once per tick
// and once per recording toggle.
type MappingSource interface {
	Mappings() []Mapping
}

// MappingList is a fixed MappingSource.
type MappingList []Mapping

func (l MappingList) Mappings() []Mapping { return l }

// NormalizeAddress trims addr and prefixes it with '/' when missing. An empty
// address stays empty.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.HasPrefix(addr, "/") {
		return addr
	}
	return "/" + addr
}
