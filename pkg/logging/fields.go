package logging

import "time"

// Field is one key/value pair of an entry's "fields" object.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Duration renders d with time.Duration.String so "1.5s" reads the same in
// every sink.
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d.String()} }

// Error stores the message only. A nil error is kept as a null value so the
// key is still present.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Keys shared by the editor's packages. Using these keeps log queries stable
// across components.
const (
	KeyComponent = "component"
	KeySession   = "session_id"
	KeySystem    = "system_id"
	KeyAsset     = "asset_id"
	KeyAssetType = "asset_type"
	KeyPort      = "port_id"
	KeyArea      = "area_id"
	KeyCommand   = "command"
	KeyBackend   = "backend"
	KeyLatency   = "latency"
	KeyCount     = "count"
	KeyPath      = "path"
)

func Component(name string) Field { return String(KeyComponent, name) }
func SessionID(id string) Field   { return String(KeySession, id) }
func SystemID(id string) Field    { return String(KeySystem, id) }
func AssetID(id string) Field     { return String(KeyAsset, id) }
func AssetType(t string) Field    { return String(KeyAssetType, t) }
func PortID(id string) Field      { return String(KeyPort, id) }
func AreaID(id string) Field      { return String(KeyArea, id) }
func Command(name string) Field   { return String(KeyCommand, name) }
func Backend(name string) Field   { return String(KeyBackend, name) }
func Path(p string) Field         { return String(KeyPath, p) }
func Count(n int) Field           { return Int(KeyCount, n) }

func Latency(d time.Duration) Field { return Duration(KeyLatency, d) }
