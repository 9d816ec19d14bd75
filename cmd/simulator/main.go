package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Location mirrors the server's coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Report mirrors the ingest endpoint's request body.
type Report struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Speed        float64 `json:"speed"`
	Heading      float64 `json:"heading"`
	Status       string  `json:"status"`
	DelayMinutes int     `json:"delay_minutes"`
}

// Base locations for simulated school neighbourhoods.
var cities = []Location{
	{Lat: 12.9716, Lon: 77.5946}, // Bengaluru
	{Lat: 19.0760, Lon: 72.8777}, // Mumbai
	{Lat: 28.6139, Lon: 77.2090}, // Delhi
	{Lat: 51.5074, Lon: -0.1278}, // London
	{Lat: 40.7128, Lon: -74.006}, // New York
	{Lat: 1.3521, Lon: 103.8198}, // Singapore
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func bearingDeg(a, b Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// buildLoop lays n stops on a ring around base so the bus has a circuit
// resembling a pickup route.
func buildLoop(base Location, n int, radiusMeters float64) []Location {
	stops := make([]Location, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		offset := Location{
			Lat: base.Lat + radiusMeters/111320.0*math.Sin(angle),
			Lon: base.Lon + radiusMeters/(111320.0*math.Cos(base.Lat*math.Pi/180))*math.Cos(angle),
		}
		stops[i] = jitterLocation(offset, 80)
	}
	return stops
}

// VehicleState is the simulator-side state of one bus.
type VehicleState struct {
	VehicleID string
	Position  Location
	SpeedKmh  float64
	Stops     []Location
	NextStop  int
	Dwell     int // ticks remaining at the current stop
	DelayMin  int
}

func reportFromState(s *VehicleState) Report {
	status := "MOVING"
	speed := s.SpeedKmh
	if s.Dwell > 0 {
		status = "STOPPED"
		speed = 0
	}
	return Report{
		Latitude:     s.Position.Lat,
		Longitude:    s.Position.Lon,
		Speed:        speed,
		Heading:      bearingDeg(s.Position, s.Stops[s.NextStop]),
		Status:       status,
		DelayMinutes: s.DelayMin,
	}
}

func step(s *VehicleState, tickSec float64) {
	if s.Dwell > 0 {
		s.Dwell--
		return
	}
	target := s.Stops[s.NextStop]
	distKm := haversineKm(s.Position, target)
	travelKm := s.SpeedKmh * (tickSec / 3600.0)
	if travelKm >= distKm {
		s.Position = target
		s.NextStop = (s.NextStop + 1) % len(s.Stops)
		s.Dwell = 1 + rand.Intn(2)
		if rand.Float64() < 0.2 {
			s.DelayMin += rand.Intn(3)
		} else if s.DelayMin > 0 && rand.Float64() < 0.3 {
			s.DelayMin--
		}
		return
	}
	s.Position = lerp(s.Position, target, travelKm/distKm)
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func createVehicle(apiURL string, n int) (string, error) {
	payload := map[string]interface{}{
		"registration_number": fmt.Sprintf("KA-01-F-%04d", 1000+n),
		"capacity":            30 + rand.Intn(30),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	resp, err := authorizedPost(apiURL+"/vehicles", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	id, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid vehicle ID in response")
	}

	log.WithField("vehicle_id", id).Info("Created vehicle")
	return id, nil
}

func sendReport(apiURL, vehicleID string, report Report) {
	data, err := json.Marshal(report)
	if err != nil {
		log.WithError(err).Error("Failed to marshal report")
		return
	}
	resp, err := authorizedPost(apiURL+"/tracking/"+vehicleID, bytes.NewBuffer(data))
	if err != nil {
		log.WithError(err).Error("Failed to send report")
		return
	}
	defer resp.Body.Close()
	log.WithFields(log.Fields{"vehicle_id": vehicleID, "status": resp.Status}).Debug("Sent report")
}

func simulateVehicle(apiURL string, s *VehicleState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		s.SpeedKmh += (rand.Float64()*2 - 1) * 2
		if s.SpeedKmh < 15 {
			s.SpeedKmh = 15
		}
		if s.SpeedKmh > 60 {
			s.SpeedKmh = 60
		}
		step(s, interval.Seconds())
		sendReport(apiURL, s.VehicleID, reportFromState(s))
	}
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting fleet simulation")

	base := cities[rand.Intn(len(cities))]
	states := make([]*VehicleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		vehicleID, err := createVehicle(apiURL, i)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		stops := buildLoop(jitterLocation(base, 2000), 6+rand.Intn(5), 1500)
		states = append(states, &VehicleState{
			VehicleID: vehicleID,
			Position:  stops[0],
			SpeedKmh:  20 + rand.Float64()*20,
			Stops:     stops,
		})
	}

	log.WithField("created_vehicles", len(states)).Info("Vehicle creation completed")
	if len(states) == 0 {
		log.Error("No vehicles created. Ensure SIM_AUTH_TOKEN is valid and API is reachable. Exiting.")
		return
	}

	for _, s := range states {
		go simulateVehicle(apiURL, s, interval)
	}

	log.Info("Telemetry simulation started")
	select {} // Block forever
}
