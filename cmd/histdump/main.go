package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"hachi/config"
	"hachi/models"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

var (
	deviceFilter = flag.String("device", "", "Only dump records for this device ID")
	latestOnly   = flag.Bool("latest", false, "Print only the newest record per device")
)

// histdump reads the stored vest telemetry back out of Firebase. Handy for
// eyeballing what the dashboard charts are built from.
func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if cfg.FirebaseServiceAccountJSON == "" {
		log.Fatal("FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set")
	}
	if cfg.FirebaseDbUrl == "" {
		log.Fatal("FIREBASE_DB_URL environment variable is not set")
	}

	ctx := context.Background()

	conf := &firebase.Config{
		DatabaseURL: cfg.FirebaseDbUrl,
	}

	opt := option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		log.Fatalf("Error initializing Firebase app: %v", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		log.Fatalf("Error getting database client: %v", err)
	}

	var records map[string]models.TelemetryRecord
	if err := client.NewRef("vest-telemetry").Get(ctx, &records); err != nil {
		log.Fatalf("Error reading telemetry: %v", err)
	}

	fmt.Printf("Total records found: %d\n", len(records))

	keys := make([]string, 0, len(records))
	for key := range records {
		record := records[key]
		if *deviceFilter != "" && record.DeviceID != *deviceFilter {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return records[keys[i]].Timestamp.Before(records[keys[j]].Timestamp)
	})

	if *latestOnly {
		// Keys are timestamp-sorted, so the last key per device wins.
		latest := map[string]string{}
		for _, key := range keys {
			latest[records[key].DeviceID] = key
		}
		for _, key := range latest {
			printRecord(key, records[key])
		}
		return
	}

	for _, key := range keys {
		printRecord(key, records[key])
	}
}

func printRecord(key string, record models.TelemetryRecord) {
	fmt.Printf("Key: %s\n", key)
	fmt.Printf("  Device: %s  Protocol: %s  Time: %s\n",
		record.DeviceID, record.Protocol, record.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Mode: %s (%s)\n", record.Mode, record.MovementTrend)

	s := record.Sample
	if s.TemperatureAvg != nil {
		fmt.Printf("  Temp: %.1f F (%s)\n", *s.TemperatureAvg, orDash(record.TemperatureStatus))
	}
	if s.TemperatureC != nil {
		fmt.Printf("  Temp: %.1f C (%s)\n", *s.TemperatureC, orDash(record.TemperatureStatus))
	}
	if s.HeartRateEstimate != nil {
		fmt.Printf("  HR est: %d BPM, signal %s (%s)\n", *s.HeartRateEstimate, s.SignalQuality, orDash(record.HeartRateStatus))
	}
	if s.HeartRate != nil {
		fmt.Printf("  HR: %.0f BPM (%s)\n", *s.HeartRate, orDash(record.HeartRateStatus))
	}
	if s.RespiratoryRate != nil {
		fmt.Printf("  Resp: %.0f (%s)\n", *s.RespiratoryRate, orDash(record.RespiratoryStatus))
	}
	fmt.Println("---")
}

func orDash(level models.StatusLevel) string {
	if level == "" {
		return "-"
	}
	return string(level)
}
