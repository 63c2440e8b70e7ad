package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/api/shared/dto"
	"github.com/harvestline/escrow-ledger/internal/api/shared/executor"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/reconciler"
)

var errNoCaller = errors.New("this command needs an acting address: set caller (engine) or ethereum.private_key (contract)")

type cli struct {
	exec executor.Executor
	// caller is nil for read-only use
	caller *common.Address
	out    io.Writer
	watch  func(ctx context.Context) (*reconciler.Reconciler, error)
}

type command struct {
	name    string
	summary string
	run     func(c *cli, ctx context.Context, fs *flag.FlagSet, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"create", "register a harvested batch (farmer)", (*cli).create},
		{"fund", "deposit escrow for a batch (retailer)", (*cli).fund},
		{"pickup", "confirm pickup of a funded batch (distributor)", batchAction(func(e executor.Executor, ctx context.Context, caller common.Address, id uint64) (*domain.Batch, error) {
			return e.ConfirmPickup(ctx, caller, id)
		})},
		{"deliver", "confirm delivery and release escrow (retailer)", batchAction(func(e executor.Executor, ctx context.Context, caller common.Address, id uint64) (*domain.Batch, error) {
			return e.ConfirmDelivery(ctx, caller, id)
		})},
		{"deny", "deny delivery, requires -confirm (retailer)", (*cli).deny},
		{"refund", "approve the refund of a denied batch (farmer)", batchAction(func(e executor.Executor, ctx context.Context, caller common.Address, id uint64) (*domain.Batch, error) {
			return e.ApproveRefund(ctx, caller, id)
		})},
		{"activate", "put serials of a batch in store (retailer)", (*cli).activate},
		{"consume", "consume serials one by one (retailer)", (*cli).consume},
		{"verify", "verify serial numbers", (*cli).verify},
		{"batches", "list batches newest first", (*cli).batches},
		{"batch", "show one batch", (*cli).batch},
		{"escrow", "show the escrow movements of a batch", (*cli).escrow},
		{"shipments", "list shipments newest first", (*cli).shipments},
		{"shipment-create", "create a shipment to a receiver", (*cli).shipmentCreate},
		{"shipment-start", "start one of your shipments", shipmentAction(executor.Executor.StartShipment)},
		{"shipment-complete", "complete one of your shipments", shipmentAction(executor.Executor.CompleteShipment)},
		{"shipment-count", "count shipments, optionally for one sender", (*cli).shipmentCount},
		{"watch", "print the batch list after every ledger change", (*cli).watchBatches},
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	name := args[0]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		return cmd.run(c, ctx, fs, args[1:])
	}
	return domain.NewError(domain.KindInvalidInput, "unknown command %q", name)
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) acting() (common.Address, error) {
	if c.caller == nil {
		return common.Address{}, errNoCaller
	}
	return *c.caller, nil
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return domain.WrapError(domain.KindInvalidInput, err, "%s", fs.Name())
	}
	return nil
}

func batchIDFlag(fs *flag.FlagSet) *uint64 {
	return fs.Uint64("batch", 0, "batch id")
}

func requireBatch(id uint64) error {
	if id == 0 {
		return domain.NewError(domain.KindInvalidInput, "-batch is required")
	}
	return nil
}

// serialsFlags accepts serials inline (comma separated) and from a file with one per line
func serialsFlags(fs *flag.FlagSet) func() (dto.SerialsRequest, error) {
	inline := fs.String("serials", "", "comma separated serial numbers")
	file := fs.String("serials-file", "", "file with one serial number per line, - for stdin")
	return func() (dto.SerialsRequest, error) {
		var req dto.SerialsRequest
		for _, s := range strings.Split(*inline, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Serials = append(req.Serials, s)
			}
		}
		if *file != "" {
			text, err := readInput(*file)
			if err != nil {
				return req, err
			}
			req.SerialsText = text
		}
		return req, nil
	}
}

func readInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (c *cli) create(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var req dto.CreateBatchRequest
	fs.StringVar(&req.ProduceName, "produce", "", "produce name")
	fs.StringVar(&req.FarmLocation, "location", "", "farm location")
	fs.StringVar(&req.IPFSHash, "ipfs", "", "certificate IPFS hash")
	fs.StringVar(&req.Distributor, "distributor", "", "distributor address")
	fs.StringVar(&req.Retailer, "retailer", "", "retailer address")
	fs.StringVar(&req.Price, "price", "", "price in wei")
	fs.StringVar(&req.PriceEth, "price-eth", "", "price in ether")
	serials := serialsFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}
	s, err := serials()
	if err != nil {
		return err
	}
	req.Serials, req.SerialsText = s.Serials, s.SerialsText

	batch, err := c.exec.CreateBatch(ctx, caller, req)
	if err != nil {
		return err
	}
	return c.print(batch)
}

func (c *cli) fund(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := batchIDFlag(fs)
	var req dto.FundBatchRequest
	fs.StringVar(&req.Value, "value", "", "deposit in wei")
	fs.StringVar(&req.ValueEth, "value-eth", "", "deposit in ether")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireBatch(*id); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}

	batch, err := c.exec.FundBatch(ctx, caller, *id, req)
	if err != nil {
		return err
	}
	return c.print(batch)
}

type batchCall func(e executor.Executor, ctx context.Context, caller common.Address, id uint64) (*domain.Batch, error)

func batchAction(call batchCall) func(c *cli, ctx context.Context, fs *flag.FlagSet, args []string) error {
	return func(c *cli, ctx context.Context, fs *flag.FlagSet, args []string) error {
		id := batchIDFlag(fs)
		if err := parse(fs, args); err != nil {
			return err
		}
		if err := requireBatch(*id); err != nil {
			return err
		}
		caller, err := c.acting()
		if err != nil {
			return err
		}

		batch, err := call(c.exec, ctx, caller, *id)
		if err != nil {
			return err
		}
		return c.print(batch)
	}
}

func (c *cli) deny(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := batchIDFlag(fs)
	var req dto.DenyDeliveryRequest
	fs.BoolVar(&req.Confirm, "confirm", false, "confirm the denial; it cannot be undone")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireBatch(*id); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}

	batch, err := c.exec.DenyDelivery(ctx, caller, *id, req)
	if err != nil {
		return err
	}
	return c.print(batch)
}

func (c *cli) activate(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := batchIDFlag(fs)
	serials := serialsFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireBatch(*id); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}
	req, err := serials()
	if err != nil {
		return err
	}

	batch, err := c.exec.ActivateItems(ctx, caller, *id, req)
	if err != nil {
		return err
	}
	return c.print(batch)
}

func (c *cli) consume(ctx context.Context, fs *flag.FlagSet, args []string) error {
	serials := serialsFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}
	req, err := serials()
	if err != nil {
		return err
	}

	resp, err := c.exec.ConsumeItems(ctx, caller, req)
	if err != nil {
		return err
	}
	if err := c.print(resp); err != nil {
		return err
	}
	if resp.Failed > 0 {
		return fmt.Errorf("%d of %d serials were not consumed", resp.Failed, len(resp.Results))
	}
	return nil
}

func (c *cli) verify(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 1 {
		verification, err := c.exec.Verify(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return c.print(verification)
	}

	resp, err := c.exec.VerifyMany(ctx, dto.VerifyRequest{Serials: fs.Args()})
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) batches(ctx context.Context, fs *flag.FlagSet, args []string) error {
	status := fs.String("status", "", "only batches in this status")
	limit := fs.Int("limit", 0, "at most this many batches")
	offset := fs.Int("offset", 0, "skip this many batches")
	if err := parse(fs, args); err != nil {
		return err
	}

	opts := executor.BatchListOptions{Limit: *limit, Offset: *offset}
	if *status != "" {
		s, err := domain.ParseBatchStatus(*status)
		if err != nil {
			return err
		}
		opts.Status = &s
	}
	resp, err := c.exec.ListBatches(ctx, opts)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) batch(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := positionalID(fs, "batch id")
	if err != nil {
		return err
	}
	batch, err := c.exec.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	return c.print(batch)
}

func (c *cli) escrow(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := positionalID(fs, "batch id")
	if err != nil {
		return err
	}
	resp, err := c.exec.GetEscrowMovements(ctx, id)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func positionalID(fs *flag.FlagSet, what string) (uint64, error) {
	if fs.NArg() != 1 {
		return 0, domain.NewError(domain.KindInvalidInput, "expected one %s", what)
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, domain.NewError(domain.KindInvalidInput, "invalid %s %q", what, fs.Arg(0))
	}
	return id, nil
}

func (c *cli) shipments(ctx context.Context, fs *flag.FlagSet, args []string) error {
	status := fs.String("status", "", "only shipments in this status")
	limit := fs.Int("limit", 0, "at most this many shipments")
	offset := fs.Int("offset", 0, "skip this many shipments")
	if err := parse(fs, args); err != nil {
		return err
	}

	opts := executor.ShipmentListOptions{Limit: *limit, Offset: *offset}
	if *status != "" {
		var s domain.ShipmentStatus
		if err := s.UnmarshalText([]byte(*status)); err != nil {
			return err
		}
		opts.Status = &s
	}
	resp, err := c.exec.ListShipments(ctx, opts)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) shipmentCreate(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var req dto.CreateShipmentRequest
	fs.StringVar(&req.Receiver, "receiver", "", "receiver address")
	fs.Uint64Var(&req.Distance, "distance", 0, "distance")
	fs.StringVar(&req.Price, "price", "", "price in wei")
	fs.StringVar(&req.PriceEth, "price-eth", "", "price in ether")
	fs.StringVar(&req.Value, "value", "", "escrowed value in wei, defaults to the price")
	fs.StringVar(&req.ValueEth, "value-eth", "", "escrowed value in ether")
	if err := parse(fs, args); err != nil {
		return err
	}
	caller, err := c.acting()
	if err != nil {
		return err
	}

	shipment, err := c.exec.CreateShipment(ctx, caller, req)
	if err != nil {
		return err
	}
	return c.print(shipment)
}

type shipmentCall func(e executor.Executor, ctx context.Context, caller common.Address, senderIndex uint64, req dto.ShipmentActionRequest) (*domain.Shipment, error)

func shipmentAction(call shipmentCall) func(c *cli, ctx context.Context, fs *flag.FlagSet, args []string) error {
	return func(c *cli, ctx context.Context, fs *flag.FlagSet, args []string) error {
		var req dto.ShipmentActionRequest
		index := fs.Uint64("index", 0, "your shipment index, starting at 0")
		fs.StringVar(&req.Receiver, "receiver", "", "receiver address")
		if err := parse(fs, args); err != nil {
			return err
		}
		caller, err := c.acting()
		if err != nil {
			return err
		}

		shipment, err := call(c.exec, ctx, caller, *index, req)
		if err != nil {
			return err
		}
		return c.print(shipment)
	}
}

func (c *cli) shipmentCount(ctx context.Context, fs *flag.FlagSet, args []string) error {
	sender := fs.String("sender", "", "count this sender's shipments")
	if err := parse(fs, args); err != nil {
		return err
	}
	resp, err := c.exec.CountShipments(ctx, *sender)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) watchBatches(ctx context.Context, fs *flag.FlagSet, args []string) error {
	limit := fs.Int("limit", 20, "batches per refresh")
	if err := parse(fs, args); err != nil {
		return err
	}
	if c.watch == nil {
		return domain.NewError(domain.KindInvalidInput, "watch is not available")
	}

	rec, err := c.watch(ctx)
	if err != nil {
		return err
	}
	defer rec.Close()

	for {
		batches := ledger.NewestBatchesFirst(rec.Batches())
		if len(batches) > *limit && *limit > 0 {
			batches = batches[:*limit]
		}
		if err := c.print(dto.BatchListResponse{Batches: batches, Total: len(rec.Batches())}); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-rec.Refreshed():
		}
	}
}
