package sensors

import "fmt"

// Build constructs one sensor per descriptor against the given update
// source: the static table, the flag table, and one relay sensor per named
// relay in the latest snapshot (none when no snapshot is available yet).
// A duplicate key is a configuration error and fails the whole setup.
func Build(source UpdateSource) ([]*Sensor, error) {
	descriptors := make([]Descriptor, 0, len(SensorTypes)+len(FlagTypes))
	descriptors = append(descriptors, SensorTypes...)
	descriptors = append(descriptors, FlagTypes...)
	if snapshot, ok := source.LatestSnapshot(); ok {
		descriptors = append(descriptors, RelayDescriptors(snapshot)...)
	}

	seen := make(map[string]struct{}, len(descriptors))
	built := make([]*Sensor, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if _, ok := seen[descriptor.Key]; ok {
			return nil, fmt.Errorf("duplicate sensor key %q", descriptor.Key)
		}
		seen[descriptor.Key] = struct{}{}
		built = append(built, New(descriptor, source))
	}
	return built, nil
}
