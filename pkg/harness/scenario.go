// Package harness runs VM programs against expected RAM contents and
// reports the outcome.
package harness

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultCycles bounds a scenario that does not set cycles.
const DefaultCycles = 100000

// Scenario describes one program run: which VM sources to translate, the
// RAM to start from and the RAM cells to check afterwards.
//
//	name: simple add
//	sources: [SimpleAdd.vm]
//	cycles: 1000
//	ram:
//	  0: 256
//	expect:
//	  0: 257
//	  256: 15
type Scenario struct {
	Name    string        `yaml:"name"`
	Sources []string      `yaml:"sources"`
	Code    string        `yaml:"code"`
	Cycles  uint64        `yaml:"cycles"`
	RAM     map[int]int16 `yaml:"ram"`
	Expect  map[int]int16 `yaml:"expect"`

	// Dir resolves relative source paths.
	Dir string `yaml:"-"`
}

// LoadScenario reads a YAML scenario file. Sources are resolved relative
// to the file's directory and a missing name defaults to the file name.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	s.Dir = filepath.Dir(path)
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	if len(s.Sources) == 0 && s.Code == "" {
		return nil, errors.New("scenario has neither sources nor code")
	}
	if len(s.Expect) == 0 {
		return nil, errors.New("scenario has no expectations")
	}
	for addr := range s.RAM {
		if err := checkAddr(addr); err != nil {
			return nil, errors.Wrap(err, "ram")
		}
	}
	for addr := range s.Expect {
		if err := checkAddr(addr); err != nil {
			return nil, errors.Wrap(err, "expect")
		}
	}
	if s.Cycles == 0 {
		s.Cycles = DefaultCycles
	}
	return &s, nil
}

// ExpectedAddrs returns the checked addresses in ascending order.
func (s *Scenario) ExpectedAddrs() []int {
	addrs := make([]int, 0, len(s.Expect))
	for a := range s.Expect {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	return addrs
}

func checkAddr(addr int) error {
	if addr < 0 || addr > 0x7FFF {
		return errors.Errorf("address %d out of range 0..32767", addr)
	}
	return nil
}
