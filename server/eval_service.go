package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/state"
	"github.com/chazu/weft/value"
	"github.com/chazu/weft/vm"
)

// EvalServiceName is the fully-qualified name of the evaluation service.
const EvalServiceName = "weft.v1.EvalService"

// Procedure paths served by EvalService. Every request and response is a
// google.protobuf.Struct.
const (
	EvaluateProcedure     = "/" + EvalServiceName + "/Evaluate"
	CheckSyntaxProcedure  = "/" + EvalServiceName + "/CheckSyntax"
	CallProcedure         = "/" + EvalServiceName + "/Call"
	GetStateProcedure     = "/" + EvalServiceName + "/GetState"
	SaveStateProcedure    = "/" + EvalServiceName + "/SaveState"
	LoadStateProcedure    = "/" + EvalServiceName + "/LoadState"
	RestartProcedure      = "/" + EvalServiceName + "/Restart"
	CloseSessionProcedure = "/" + EvalServiceName + "/CloseSession"
)

type structRequest = connect.Request[structpb.Struct]
type structResponse = connect.Response[structpb.Struct]

// EvalService evaluates scripts in per-session VMs.
type EvalService struct {
	sessions *Sessions
	store    *state.Store // nil disables SaveState and LoadState
}

// NewEvalService creates an EvalService. store may be nil.
func NewEvalService(sessions *Sessions, store *state.Store) *EvalService {
	return &EvalService{sessions: sessions, store: store}
}

// NewEvalServiceHandler builds an HTTP handler serving svc over the
// Connect, gRPC and gRPC-Web protocols. It returns the path to mount it on.
func NewEvalServiceHandler(svc *EvalService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, svc.Evaluate, opts...))
	mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, svc.CheckSyntax, opts...))
	mux.Handle(CallProcedure, connect.NewUnaryHandler(CallProcedure, svc.Call, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(SaveStateProcedure, connect.NewUnaryHandler(SaveStateProcedure, svc.SaveState, opts...))
	mux.Handle(LoadStateProcedure, connect.NewUnaryHandler(LoadStateProcedure, svc.LoadState, opts...))
	mux.Handle(RestartProcedure, connect.NewUnaryHandler(RestartProcedure, svc.Restart, opts...))
	mux.Handle(CloseSessionProcedure, connect.NewUnaryHandler(CloseSessionProcedure, svc.CloseSession, opts...))
	return "/" + EvalServiceName + "/", mux
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// Evaluate compiles source into the session's toplevel and runs it. An
// empty session id starts a new session; its id is returned.
func (s *EvalService) Evaluate(ctx context.Context, req *structRequest) (*structResponse, error) {
	source := stringField(req.Msg, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	session, err := s.session(stringField(req.Msg, "session"), true)
	if err != nil {
		return nil, err
	}

	result, err := session.Worker.Do(func(v *vm.VM) any {
		return evaluate(ctx, v, source)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := result.(*structpb.Struct)
	out.Fields["session"] = structpb.NewStringValue(session.ID)
	return connect.NewResponse(out), nil
}

// CheckSyntax reports the static errors of source without running it.
// With a session, names bound by the session's toplevel resolve.
func (s *EvalService) CheckSyntax(ctx context.Context, req *structRequest) (*structResponse, error) {
	source := stringField(req.Msg, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	var errs []ir.StaticError
	if id := stringField(req.Msg, "session"); id != "" {
		session, err := s.session(id, false)
		if err != nil {
			return nil, err
		}
		result, err := session.Worker.Do(func(v *vm.VM) any {
			return v.Check(source)
		})
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		errs = result.([]ir.StaticError)
	} else {
		errs = s.sessions.newVM().Check(source)
	}

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"valid":       structpb.NewBoolValue(len(errs) == 0),
		"diagnostics": diagnostics(errs),
	}}), nil
}

// Call invokes a function bound by the session's toplevel with the given
// arguments.
func (s *EvalService) Call(ctx context.Context, req *structRequest) (*structResponse, error) {
	name := stringField(req.Msg, "function")
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("function is required"))
	}
	session, err := s.session(stringField(req.Msg, "session"), false)
	if err != nil {
		return nil, err
	}
	params := listField(req.Msg, "args")

	result, err := session.Worker.Do(func(v *vm.VM) any {
		args := make([]value.Value, len(params))
		for i, p := range params {
			args[i] = fromProto(p)
		}
		got, err := v.Call(ctx, name, args...)
		for i := range args {
			args[i].Release()
		}
		defer got.Release()
		if err != nil {
			v.Restart()
			return failure(err)
		}
		return success(&got)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*structpb.Struct)), nil
}

// GetState returns the session's persisted state.
func (s *EvalService) GetState(ctx context.Context, req *structRequest) (*structResponse, error) {
	session, err := s.session(stringField(req.Msg, "session"), false)
	if err != nil {
		return nil, err
	}
	result, err := session.Worker.Do(func(v *vm.VM) any {
		st := v.State()
		defer st.Release()
		return toProto(&st)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"state": result.(*structpb.Value),
	}}), nil
}

// SaveState writes the session's state to the snapshot store under key,
// or under the session id when key is empty.
func (s *EvalService) SaveState(ctx context.Context, req *structRequest) (*structResponse, error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no state store configured"))
	}
	session, err := s.session(stringField(req.Msg, "session"), false)
	if err != nil {
		return nil, err
	}
	key := stringField(req.Msg, "key")
	if key == "" {
		key = session.ID
	}

	result, err := session.Worker.Do(func(v *vm.VM) any {
		return v.State()
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	st := result.(value.Value)
	defer st.Release()

	if err := s.store.Save(ctx, key, &st); err != nil {
		if errors.Is(err, state.ErrUnsupported) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	log.Infof("saved state of session %s as %s", session.ID, key)
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"key": structpb.NewStringValue(key),
	}}), nil
}

// LoadState replaces the session's state with the snapshot stored under
// key.
func (s *EvalService) LoadState(ctx context.Context, req *structRequest) (*structResponse, error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no state store configured"))
	}
	key := stringField(req.Msg, "key")
	if key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("key is required"))
	}
	session, err := s.session(stringField(req.Msg, "session"), false)
	if err != nil {
		return nil, err
	}

	st, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("snapshot %q not found", key))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if _, err := session.Worker.Do(func(v *vm.VM) any {
		v.SetState(st)
		return nil
	}); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"key": structpb.NewStringValue(key),
	}}), nil
}

// Restart clears a failed run in the session. With "clear_state" set the
// persisted state is dropped as well.
func (s *EvalService) Restart(ctx context.Context, req *structRequest) (*structResponse, error) {
	session, err := s.session(stringField(req.Msg, "session"), false)
	if err != nil {
		return nil, err
	}
	clearState := req.Msg.GetFields()["clear_state"].GetBoolValue()

	session.Worker.Interrupt()
	if _, err := session.Worker.Do(func(v *vm.VM) any {
		v.Restart()
		if clearState {
			v.SetState(value.NewMap())
		}
		return nil
	}); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{}}), nil
}

// CloseSession ends a session.
func (s *EvalService) CloseSession(ctx context.Context, req *structRequest) (*structResponse, error) {
	id := stringField(req.Msg, "session")
	if !s.sessions.Destroy(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %q", ErrSessionNotFound, id))
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{}}), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// session resolves id to a live session. create allows an empty id to
// start a new one.
func (s *EvalService) session(id string, create bool) (*Session, error) {
	if id == "" && !create {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session is required"))
	}
	session, err := s.sessions.Resolve(id)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %q", err, id))
	}
	return session, nil
}

// evaluate runs source in v. Must be called on the worker goroutine.
func evaluate(ctx context.Context, v *vm.VM, source string) *structpb.Struct {
	got, err := v.Eval(ctx, source)
	defer got.Release()
	if err != nil {
		out := failure(err)
		if errs := v.StaticErrors(); len(errs) > 0 {
			out.Fields["diagnostics"] = diagnostics(errs)
		}
		v.Restart()
		return out
	}
	return success(&got)
}

func success(v *value.Value) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"success": structpb.NewBoolValue(true),
		"result":  toProto(v),
		"display": structpb.NewStringValue(v.Repr()),
		"type":    structpb.NewStringValue(v.Type().Name),
	}}
}

func failure(err error) *structpb.Struct {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		"success": structpb.NewBoolValue(false),
		"error":   structpb.NewStringValue(err.Error()),
	}}
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		out.Fields["trace"] = structpb.NewStringValue(rerr.FormatTrace())
		if rerr.Line > 0 {
			out.Fields["line"] = structpb.NewNumberValue(float64(rerr.Line))
		}
	}
	return out
}

func diagnostics(errs []ir.StaticError) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(errs))}
	for i, e := range errs {
		list.Values[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"line":    structpb.NewNumberValue(float64(e.Line)),
			"column":  structpb.NewNumberValue(float64(e.Col)),
			"message": structpb.NewStringValue(e.Message),
		}})
	}
	return structpb.NewListValue(list)
}
