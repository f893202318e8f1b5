package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rwGrpc "liyu1981.xyz/roomwatch-service/pkg/grpc"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

var maxRooms int = 1000
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var grpcConn *grpc.ClientConn

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

// roomOwner is one benchmark user with a single room.
type roomOwner struct {
	token  string
	roomID string
}

func main() {
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	grpcConn, err = grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer grpcConn.Close()

	fmt.Printf("gRPC client created\n")

	var startTime time.Time
	var usedTime time.Duration

	owners := make([]roomOwner, maxRooms)
	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxRooms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owners[i] = signUpWithRoom(i)
			fmt.Printf("\rcreated user and room %v", i)
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\rcreated %v users with a room: used time=%v seconds, throughput=%v action/second\n",
		maxRooms, usedTime.Seconds(), float64(maxRooms*2)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxRooms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doAction(owners[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v rooms: used time=%v seconds, throughput=%v action/second\n",
		maxRooms, usedTime.Seconds(), float64(maxRooms*3)/usedTime.Seconds(),
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func postJSON(path, token string, payload any, out any) error {
	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s%s", httpHostPort, path), bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s answered %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func signUpWithRoom(i int) roomOwner {
	var auth struct {
		Token string `json:"token"`
	}
	if err := postJSON("/auth/signup", "", map[string]string{
		"email":    uuid.NewString() + "@bench.local",
		"password": "benchmark",
	}, &auth); err != nil {
		panic(err)
	}

	var room models.Room
	if err := postJSON("/rooms", auth.Token, map[string]string{"name": fmt.Sprintf("Room %d", i)}, &room); err != nil {
		panic(err)
	}
	return roomOwner{token: auth.Token, roomID: room.ID}
}

func doAction(owner roomOwner) {
	actions := []func(){
		genUpdateThresholdsAction(owner),
		genListAlertsAction(owner),
		genPostReadingAction(owner),
	}
	actionNames := []string{
		"UpdateThresholds",
		"ListAlerts",
		"PostReading",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for room %v", actionNames[index], owner.roomID)
		rndMu.Lock()
		pause := time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
		rndMu.Unlock()
		time.Sleep(pause)
	}
}

func genUpdateThresholdsAction(owner roomOwner) func() {
	return func() {
		minTemp := rndFloat64(15.0, 20.0, 1)
		thresholds := models.Thresholds{
			MinTemp:              minTemp,
			MaxTemp:              minTemp + rndFloat64(4.0, 10.0, 1),
			MinHumidity:          30,
			MaxHumidity:          70,
			MaxAQI:               100,
			NotificationsEnabled: true,
		}

		if flipCoin() {
			req, _ := json.Marshal(thresholds)
			httpReq, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("http://%s/rooms/%s/thresholds", httpHostPort, owner.roomID), bytes.NewBuffer(req))
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+owner.token)
			resp, err := http.DefaultClient.Do(httpReq)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			defer resp.Body.Close()
		} else {
			if _, err := rwGrpc.NewClient(grpcConn, owner.token).UpdateThresholds(context.Background(), owner.roomID, thresholds); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		}
	}
}

func genPostReadingAction(owner roomOwner) func() {
	return func() {
		reading := models.Reading{
			Timestamp:   time.Now(),
			Temperature: rndFloat64(10.0, 35.0, 1),
			Humidity:    rndFloat64(20.0, 90.0, 1),
		}

		if flipCoin() {
			if err := postJSON(fmt.Sprintf("/rooms/%s/readings", owner.roomID), owner.token, reading, nil); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		} else {
			if _, err := rwGrpc.NewClient(grpcConn, owner.token).PostReading(context.Background(), owner.roomID, reading); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		}
	}
}

func genListAlertsAction(owner roomOwner) func() {
	return func() {
		if flipCoin() {
			req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/alerts", httpHostPort), nil)
			req.Header.Set("Authorization", "Bearer "+owner.token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				fmt.Printf("\nresponse status code != 200: %v\n", resp)
			}
		} else {
			if _, err := rwGrpc.NewClient(grpcConn, owner.token).LoadAlerts(context.Background(), "", models.AlertFilterAll); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		}
	}
}
