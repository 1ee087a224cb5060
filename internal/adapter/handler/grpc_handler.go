package handler

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
	"github.com/rl1809/freezer-inventory/internal/core/service"
)

const inventoryServiceName = "freezer.v1.Inventory"

// InventoryServer is the gRPC surface of the freezer inventory. Requests and
// responses are google.protobuf.Struct documents carrying the same fields as the
// HTTP JSON bodies.
type InventoryServer interface {
	AddGelato(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UseGelato(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchFreezer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteFreezer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearFreezer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefillSuggestions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListContents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddGelato", Handler: unaryHandler("AddGelato", InventoryServer.AddGelato)},
		{MethodName: "UseGelato", Handler: unaryHandler("UseGelato", InventoryServer.UseGelato)},
		{MethodName: "SwitchFreezer", Handler: unaryHandler("SwitchFreezer", InventoryServer.SwitchFreezer)},
		{MethodName: "DeleteFreezer", Handler: unaryHandler("DeleteFreezer", InventoryServer.DeleteFreezer)},
		{MethodName: "ClearFreezer", Handler: unaryHandler("ClearFreezer", InventoryServer.ClearFreezer)},
		{MethodName: "RefillSuggestions", Handler: unaryHandler("RefillSuggestions", InventoryServer.RefillSuggestions)},
		{MethodName: "ListContents", Handler: unaryHandler("ListContents", InventoryServer.ListContents)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "freezer/v1/inventory.proto",
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

// FullMethod returns the wire name of an Inventory method.
func FullMethod(method string) string {
	return "/" + inventoryServiceName + "/" + method
}

func unaryHandler(method string, call func(InventoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var _ InventoryServer = (*GRPCHandler)(nil)

type GRPCHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewGRPCHandler(inventory *service.InventoryService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{inventory: inventory, logger: logger}
}

func (h *GRPCHandler) AddGelato(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	location, item := field(req, "location"), field(req, "item")
	qty, err := domain.ParseQuantity(field(req, "quantity"))
	if err != nil {
		return nil, h.toStatus(err)
	}

	got, err := h.inventory.Add(ctx, location, item, qty)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return h.reply(quantityReply(location, item, got.String()))
}

func (h *GRPCHandler) UseGelato(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	location, item := field(req, "location"), field(req, "item")
	qty, err := domain.ParseQuantity(field(req, "quantity"))
	if err != nil {
		return nil, h.toStatus(err)
	}

	got, err := h.inventory.Consume(ctx, location, item, qty)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return h.reply(quantityReply(location, item, got.String()))
}

func (h *GRPCHandler) SwitchFreezer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, to, item := field(req, "from"), field(req, "to"), field(req, "item")

	moved, err := h.inventory.Transfer(ctx, from, to, item)
	if err != nil {
		return nil, h.toStatus(err)
	}
	key := domain.NewInventoryKey(from, item)
	return h.reply(map[string]any{
		"from":  key.Location,
		"to":    domain.NewInventoryKey(to, item).Location,
		"item":  key.Item,
		"moved": moved.String(),
	})
}

func (h *GRPCHandler) DeleteFreezer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	location := field(req, "location")
	n, err := h.inventory.RemoveLocation(ctx, location)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return h.reply(map[string]any{"location": location, "rows": n})
}

func (h *GRPCHandler) ClearFreezer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	location := field(req, "location")
	n, err := h.inventory.ZeroLocation(ctx, location)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return h.reply(map[string]any{"location": location, "rows": n})
}

func (h *GRPCHandler) RefillSuggestions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var suggestions map[string][]string
	if raw := field(req, "threshold"); raw != "" {
		threshold, err := domain.ParseQuantity(raw)
		if err != nil {
			return nil, h.toStatus(err)
		}
		suggestions = h.inventory.RefillSuggestions(threshold)
	} else {
		suggestions = h.inventory.DefaultRefillSuggestions()
	}

	out := make(map[string]any, len(suggestions))
	for loc, items := range suggestions {
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, item)
		}
		out[loc] = list
	}
	return h.reply(map[string]any{"suggestions": out})
}

func (h *GRPCHandler) ListContents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entries, err := h.inventory.ListContents(field(req, "location"))
	if err != nil {
		return nil, h.toStatus(err)
	}

	items := make([]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{"item": e.Item, "quantity": e.Quantity.String()})
	}
	return h.reply(map[string]any{"items": items})
}

func (h *GRPCHandler) reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return out, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		h.logger.Error("inventory rpc failed", zap.Error(err))
		return status.Error(codes.Internal, err.Error())
	}
}

// field reads a string or number member of req; numbers are rendered without
// trailing zeros so "quantity": 4 and "quantity": "4" behave alike.
func field(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return decimalString(kind.NumberValue)
	default:
		return ""
	}
}

func quantityReply(location, item, qty string) map[string]any {
	key := domain.NewInventoryKey(location, item)
	return map[string]any{"location": key.Location, "item": key.Item, "quantity": qty}
}

func decimalString(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NaN"
	}
	return decimal.NewFromFloat(f).String()
}
