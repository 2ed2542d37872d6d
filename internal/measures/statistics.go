package measures

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxDraws bounds the rejection sampling of one truncated-normal attribute.
const MaxDraws = 1000

// Statistic names used as key suffixes.
const (
	StatMean   = "mean"
	StatStdDev = "std_dev"
	StatMin    = "min"
	StatMax    = "max"
)

// Proportion keys.
const (
	KeyMaleProportion       = "male_proportion"
	KeyPedestrianProportion = "pedestrian_proportion"
	KeyBikeProportion       = "bike_proportion"
)

// Statistics is the population table, keyed "{sex}_{attribute}_{stat}" for
// pedestrians, "bike_{attribute}_{stat}" for bikes, and "{type}_proportion".
type Statistics map[string]float64

// Distribution is the truncated-normal parameter set of one attribute.
type Distribution struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Distribution looks up the four parameters of attr under prefix ("male",
// "female" or "bike").
func (s Statistics) Distribution(prefix, attr string) (Distribution, error) {
	var d Distribution
	for _, f := range []struct {
		stat string
		dst  *float64
	}{
		{StatMean, &d.Mean},
		{StatStdDev, &d.StdDev},
		{StatMin, &d.Min},
		{StatMax, &d.Max},
	} {
		key := prefix + "_" + attr + "_" + f.stat
		v, ok := s[key]
		if !ok {
			return Distribution{}, fmt.Errorf("%w: missing statistic %q", ErrInvalidMeasures, key)
		}
		*f.dst = v
	}
	if d.Min > d.Max || d.StdDev < 0 {
		return Distribution{}, fmt.Errorf("%w: bad distribution for %s_%s", ErrInvalidMeasures, prefix, attr)
	}
	return d, nil
}

// Validate checks that every distribution needed by the populated agent
// types is present and well formed.
func (s Statistics) Validate() error {
	var errs []error
	check := func(prefix string, t AgentType) {
		for _, attr := range Attributes(t) {
			if attr == AttrSex {
				continue
			}
			if _, err := s.Distribution(prefix, attr); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s[KeyPedestrianProportion] > 0 {
		if p, ok := s[KeyMaleProportion]; !ok || p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%w: %s must be in [0, 1]", ErrInvalidMeasures, KeyMaleProportion))
		}
		check(Male.String(), Pedestrian)
		check(Female.String(), Pedestrian)
	}
	if s[KeyBikeProportion] > 0 {
		check(Bike.String(), Bike)
	}
	if s[KeyPedestrianProportion]+s[KeyBikeProportion] <= 0 {
		errs = append(errs, fmt.Errorf("%w: type proportions sum to zero", ErrInvalidMeasures))
	}
	return errors.Join(errs...)
}

// DefaultStatistics returns a reference adult population (pedestrians only).
func DefaultStatistics() Statistics {
	return Statistics{
		KeyPedestrianProportion: 1,
		KeyBikeProportion:       0,
		KeyMaleProportion:       0.5,

		"male_bideltoid_breadth_mean":    51.0,
		"male_bideltoid_breadth_std_dev": 2.7,
		"male_bideltoid_breadth_min":     42.0,
		"male_bideltoid_breadth_max":     62.0,
		"male_chest_depth_mean":          26.0,
		"male_chest_depth_std_dev":       2.1,
		"male_chest_depth_min":           19.0,
		"male_chest_depth_max":           35.0,
		"male_height_mean":               177.0,
		"male_height_std_dev":            7.1,
		"male_height_min":                150.0,
		"male_height_max":                205.0,
		"male_weight_mean":               85.0,
		"male_weight_std_dev":            14.0,
		"male_weight_min":                50.0,
		"male_weight_max":                140.0,

		"female_bideltoid_breadth_mean":    45.0,
		"female_bideltoid_breadth_std_dev": 2.5,
		"female_bideltoid_breadth_min":     37.0,
		"female_bideltoid_breadth_max":     54.0,
		"female_chest_depth_mean":          24.0,
		"female_chest_depth_std_dev":       2.2,
		"female_chest_depth_min":           17.0,
		"female_chest_depth_max":           33.0,
		"female_height_mean":               163.5,
		"female_height_std_dev":            6.4,
		"female_height_min":                140.0,
		"female_height_max":                190.0,
		"female_weight_mean":               68.0,
		"female_weight_std_dev":            12.0,
		"female_weight_min":                40.0,
		"female_weight_max":                120.0,

		"bike_wheel_width_mean":         5.0,
		"bike_wheel_width_std_dev":      0.8,
		"bike_wheel_width_min":          3.0,
		"bike_wheel_width_max":          8.0,
		"bike_total_length_mean":        180.0,
		"bike_total_length_std_dev":     9.0,
		"bike_total_length_min":         150.0,
		"bike_total_length_max":         210.0,
		"bike_handlebar_length_mean":    60.0,
		"bike_handlebar_length_std_dev": 5.0,
		"bike_handlebar_length_min":     45.0,
		"bike_handlebar_length_max":     75.0,
		"bike_top_tube_length_mean":     55.0,
		"bike_top_tube_length_std_dev":  4.0,
		"bike_top_tube_length_min":      45.0,
		"bike_top_tube_length_max":      65.0,
		"bike_weight_mean":              95.0,
		"bike_weight_std_dev":           12.0,
		"bike_weight_min":               60.0,
		"bike_weight_max":               140.0,
	}
}

// ParseStatistics decodes a flat YAML mapping of statistic keys to numbers.
func ParseStatistics(data []byte) (Statistics, error) {
	var s Statistics
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing statistics YAML: %w", err)
	}
	return s, nil
}

// LoadStatistics reads a statistics table from a YAML file.
func LoadStatistics(path string) (Statistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading statistics file: %w", err)
	}
	return ParseStatistics(data)
}

// SampleType draws an agent type from the type proportions.
func SampleType(stats Statistics, rng *rand.Rand) (AgentType, error) {
	ped, bike := stats[KeyPedestrianProportion], stats[KeyBikeProportion]
	if ped < 0 || bike < 0 || ped+bike <= 0 {
		return 0, fmt.Errorf("%w: type proportions %g/%g", ErrInvalidMeasures, ped, bike)
	}
	if rng.Float64()*(ped+bike) < ped {
		return Pedestrian, nil
	}
	return Bike, nil
}

// Sample draws measures for agentType. Pedestrian sex is Bernoulli on
// male_proportion; every other attribute is an independent truncated normal
// drawn by rejection, in the stable attribute order so a seeded rng always
// yields the same measures.
func Sample(agentType AgentType, stats Statistics, rng *rand.Rand) (Measures, error) {
	values := make(map[string]float64)
	prefix := Bike.String()
	if agentType == Pedestrian {
		p, ok := stats[KeyMaleProportion]
		if !ok || p < 0 || p > 1 {
			return Measures{}, fmt.Errorf("%w: %s must be in [0, 1]", ErrInvalidMeasures, KeyMaleProportion)
		}
		sex := Female
		if rng.Float64() < p {
			sex = Male
		}
		values[AttrSex] = float64(sex)
		prefix = sex.String()
	}

	for _, attr := range Attributes(agentType) {
		if attr == AttrSex {
			continue
		}
		d, err := stats.Distribution(prefix, attr)
		if err != nil {
			return Measures{}, err
		}
		v, err := d.Draw(rng)
		if err != nil {
			return Measures{}, fmt.Errorf("sample %s_%s: %w", prefix, attr, err)
		}
		values[attr] = v
	}
	return New(agentType, values)
}

// Draw samples the truncated normal by rejection within MaxDraws attempts.
func (d Distribution) Draw(rng *rand.Rand) (float64, error) {
	if d.StdDev == 0 {
		if d.Mean >= d.Min && d.Mean <= d.Max {
			return d.Mean, nil
		}
		return 0, ErrSamplingExhausted
	}
	for i := 0; i < MaxDraws; i++ {
		v := d.Mean + d.StdDev*rng.NormFloat64()
		if v >= d.Min && v <= d.Max {
			return v, nil
		}
	}
	return 0, ErrSamplingExhausted
}
