package human

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Bytes represents a number of bytes.
//
// Values format with units in factors of 1024 (KiB, MiB, ...), e.g. 1.5 KiB.
type Bytes uint64

const (
	B Bytes = 1

	KiB Bytes = 1024 * B
	MiB Bytes = 1024 * KiB
	GiB Bytes = 1024 * MiB
	TiB Bytes = 1024 * GiB
	PiB Bytes = 1024 * TiB
)

type byteUnit struct {
	scale Bytes
	unit  string
}

var bytes1024 = [...]byteUnit{
	{B, "B"},
	{KiB, "KiB"},
	{MiB, "MiB"},
	{GiB, "GiB"},
	{TiB, "TiB"},
	{PiB, "PiB"},
}

func (b Bytes) String() string {
	scale, unit := B, ""
	for i := len(bytes1024) - 1; i >= 0; i-- {
		if u := bytes1024[i]; b >= u.scale {
			scale, unit = u.scale, u.unit
			break
		}
	}
	s := ftoa(float64(b), float64(scale))
	if unit != "" {
		s += " " + unit
	}
	return s
}

func (b Bytes) GoString() string {
	return fmt.Sprintf("human.Bytes(%d)", uint64(b))
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(b))
}

func (b *Bytes) UnmarshalJSON(j []byte) error {
	return json.Unmarshal(j, (*uint64)(b))
}

func (b Bytes) MarshalYAML() (any, error) {
	return uint64(b), nil
}

// ftoa formats value/scale with up to two decimals, trimming trailing zeros.
func ftoa(value, scale float64) string {
	if scale <= 1 {
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	s := strconv.FormatFloat(value/scale, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
