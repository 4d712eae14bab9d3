package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"

	"fleetload/internal/model"
)

// Config is loaded once at startup; read-only thereafter.
type Config struct {
	Listen string `yaml:"listen"`

	Workload struct {
		AvgSpeedKmh    float64 `yaml:"avgSpeedKmh"`
		ServiceTimeMin int     `yaml:"serviceTimeMin"`
		TargetKmPerDay float64 `yaml:"targetKmPerDay"`
		UnderloadPct   float64 `yaml:"underloadPct"`
		OverloadPct    float64 `yaml:"overloadPct"`
		DayStart       string  `yaml:"dayStart"`
		Depot          struct {
			Lat float64 `yaml:"lat"`
			Lng float64 `yaml:"lng"`
		} `yaml:"depot"`
	} `yaml:"workload"`

	Fuel struct {
		DefaultPerKm float64            `yaml:"defaultPerKm"`
		PerUnitType  map[string]float64 `yaml:"perUnitType"`
	} `yaml:"fuel"`

	Toll struct {
		DefaultPerKm float64            `yaml:"defaultPerKm"`
		PerClass     map[string]float64 `yaml:"perClass"`
	} `yaml:"toll"`

	Directions struct {
		BaseURL string  `yaml:"baseUrl"`
		APIKey  string  `yaml:"apiKey"`
		RPS     float64 `yaml:"rps"`
	} `yaml:"directions"`
}

func defaults() Config {
	var c Config
	c.Listen = ":8080"
	c.Workload.AvgSpeedKmh = 60
	c.Workload.ServiceTimeMin = 30
	c.Workload.TargetKmPerDay = 400
	c.Workload.UnderloadPct = 50
	c.Workload.OverloadPct = 100
	c.Workload.DayStart = "06:00"
	c.Fuel.DefaultPerKm = 6.5
	c.Toll.DefaultPerKm = 1.8
	c.Directions.RPS = 5
	return c
}

// Load reads the YAML file at path (missing file is fine: defaults apply),
// then applies environment overrides.
func Load(path string) (Config, error) {
	c := defaults()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("AVG_SPEED_KMH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Workload.AvgSpeedKmh = f
		}
	}
	if v := os.Getenv("SERVICE_TIME_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workload.ServiceTimeMin = n
		}
	}
	if v := os.Getenv("TARGET_KM_PER_DAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Workload.TargetKmPerDay = f
		}
	}
	if v := os.Getenv("DIRECTIONS_API_KEY"); v != "" {
		c.Directions.APIKey = v
	}
	return c, nil
}

func (c Config) Depot() model.GeoPoint {
	return model.GeoPoint{Lat: c.Workload.Depot.Lat, Lng: c.Workload.Depot.Lng}
}
