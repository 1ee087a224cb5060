package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/freezer-inventory/internal/adapter/storage"
	"github.com/rl1809/freezer-inventory/internal/core/service"
)

const (
	flavor         = "Pistachio"
	instances      = 2
	addsPerWorker  = 25
	workersPerInst = 4
	transfers      = 20
)

var freezers = []string{"-18", "-12"}

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	dir, err := os.MkdirTemp("", "freezer-stress")
	if err != nil {
		logger.Fatal("failed to create temp dir", zap.Error(err))
	}
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "inventory.csv")

	// Two services sharing one file stand in for two processes
	var services []*service.InventoryService
	for i := 0; i < instances; i++ {
		svc, _, err := service.NewInventoryService(ctx, storage.NewCSVAdapter(file), freezers,
			service.WithLocker(storage.NewFlockAdapter(file, 10*time.Second)),
		)
		if err != nil {
			logger.Fatal("failed to start service", zap.Error(err))
		}
		services = append(services, svc)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i, svc := range services {
		for w := 0; w < workersPerInst; w++ {
			wg.Add(1)
			go func(svc *service.InventoryService, freezer string) {
				defer wg.Done()
				for n := 0; n < addsPerWorker; n++ {
					if _, err := svc.Add(ctx, freezer, flavor, decimal.NewFromInt(1)); err != nil {
						failCount.Add(1)
						logger.Warn("add failed", zap.Error(err))
						continue
					}
					successCount.Add(1)
				}
			}(svc, freezers[(i+w)%len(freezers)])
		}

		wg.Add(1)
		go func(svc *service.InventoryService, id int) {
			defer wg.Done()
			for n := 0; n < transfers; n++ {
				from, to := freezers[(id+n)%2], freezers[(id+n+1)%2]
				// NotFound is expected when the other side already moved everything
				_, _ = svc.Transfer(ctx, from, to, flavor)
			}
		}(svc, i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Read the file back rather than trusting either instance's view
	ledger, _, err := storage.NewCSVAdapter(file).Load(ctx)
	if err != nil {
		logger.Fatal("failed to reload", zap.Error(err))
	}
	total := ledger.TotalFor(flavor)

	expected := int32(instances * workersPerInst * addsPerWorker)
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Service Instances: %d\n", instances)
	fmt.Printf("Total Adds:        %d\n", expected)
	fmt.Printf("Successful:        %d\n", success)
	fmt.Printf("Failed:            %d\n", fail)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("==========================================")

	if success == expected && fail == 0 {
		fmt.Printf("PASS: all %d adds succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d successful adds, got %d (%d failed)\n", expected, success, fail)
	}

	fmt.Printf("Final %s Total: %s\n", flavor, total)
	if total.Equal(decimal.NewFromInt(int64(success))) {
		fmt.Println("PASS: no quantity lost or duplicated across transfers")
	} else {
		fmt.Printf("FAIL: expected total %d, got %s\n", success, total)
	}
}
