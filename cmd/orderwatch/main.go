// orderwatch renders the active order list in the terminal. It runs the same
// polling cache the dashboard uses and additionally subscribes to the order
// event topic so newly placed orders appear before the next poll tick.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/packlinehq/packline-api/internal/clients"
	"github.com/packlinehq/packline-api/internal/config"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/ordercache"
	"github.com/packlinehq/packline-api/pkg/kafka"
	"github.com/packlinehq/packline-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)

	client := clients.NewOrdersClient(cfg.Orders.APIURL+cfg.BaseURL, l)
	cache := ordercache.New(client, cfg.Orders.PollInterval, l)

	// Without the event feed the poll loop still converges, so a broken
	// broker setup downgrades to polling instead of aborting.
	consumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.OrdersTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, l)

	if err != nil {
		l.Warn("Order event feed unavailable, relying on polling only", "error", err)
		consumer = nil
	} else {
		consumer.RegisterHandler(cfg.Kafka.OrdersTopic, ordercache.NewEventHandler(cache, l))

		if err := consumer.Start(); err != nil {
			l.Warn("Order event feed unavailable, relying on polling only", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cache.Run(ctx)

	l.Info("Watching orders", "server", cfg.Orders.APIURL, "pollInterval", cfg.Orders.PollInterval)

	ticker := time.NewTicker(cfg.Orders.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if consumer != nil {
				if err := consumer.Stop(); err != nil {
					l.Error("Error stopping Kafka consumer", "error", err)
				}
			}
			l.Info("orderwatch exiting")
			return
		case <-ticker.C:
			render(cache)
		}
	}
}

func render(cache *ordercache.Cache) {
	orders, state := cache.Snapshot()

	fmt.Printf("\n%s  active orders: %d  state: %s\n",
		time.Now().Format("15:04:05"), len(orders), state)

	if err := cache.Err(); err != nil {
		fmt.Printf("last error: %v\n", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Order", "Customer", "Contact", "District", "Transport", "Status", "Items", "Placed"})

	for _, order := range orders {
		table.Append([]string{
			strconv.FormatInt(order.OrderID, 10),
			order.CustomerName,
			order.ContactNumber,
			order.District,
			order.Transport,
			order.Status,
			strconv.Itoa(len(order.Products)),
			order.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	table.Render()
	printLineItems(orders)
}

func printLineItems(orders []models.Order) {
	for _, order := range orders {
		for _, p := range order.Products {
			fmt.Printf("  order %d item %d: %dmic %dm %s %s x%d %s\n",
				order.OrderID, p.ProductID, p.Micron, p.Meter, p.Size, p.Color, p.Quantity, p.Unit)
		}
	}
}
