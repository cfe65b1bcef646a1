package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/eventbus"
	"mongodb-rest/internal/shared/logger"
	"mongodb-rest/internal/shared/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// OutcomeKind tags the result of a dispatched operation
type OutcomeKind int

const (
	OutcomeListed OutcomeKind = iota + 1
	OutcomeFetched
	OutcomeInserted
	OutcomeUpdated
	OutcomeDeleted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeListed:
		return "listed"
	case OutcomeFetched:
		return "fetched"
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Request is one routed HTTP request
type Request struct {
	Method  string
	Address model.Address
	Body    []byte
}

// Outcome is the store result of a request, before HTTP mapping.
// Exactly one of Names, Documents, Document or Ack is meaningful,
// depending on Kind and the addressed resource.
type Outcome struct {
	Kind      OutcomeKind
	Names     []string
	Documents []model.Document
	Document  model.Document
	Ack       model.Acknowledgment

	// Created is the address of the inserted document
	Created *model.Address
}

// DispatcherConfig holds dispatcher settings
type DispatcherConfig struct {
	// AdminDatabase is the connection used to list databases
	AdminDatabase string `env:"ADMIN_DATABASE" envDefault:"admin"`
	// OperationTimeout bounds each dispatched operation; 0 disables it
	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"0s"`
}

// Dispatcher executes routed requests against cached store connections
type Dispatcher struct {
	connections repository.ConnectionSource
	bus         eventbus.EventBusInterface
	logger      logger.Logger
	config      DispatcherConfig
}

// NewDispatcher creates a dispatcher. bus may be nil when no change
// events are wanted.
func NewDispatcher(connections repository.ConnectionSource, bus eventbus.EventBusInterface, config DispatcherConfig, log logger.Logger) *Dispatcher {
	if config.AdminDatabase == "" {
		config.AdminDatabase = "admin"
	}
	return &Dispatcher{
		connections: connections,
		bus:         bus,
		logger:      log.WithComponent("dispatcher"),
		config:      config,
	}
}

// Dispatch runs the store operation selected by method and address
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	addr := req.Address
	ctx = utils.WithResource(ctx, addr.Database, addr.Collection, req.Method+" "+addr.Kind.String())

	if d.config.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.OperationTimeout)
		defer cancel()
	}

	switch {
	case req.Method == http.MethodGet && addr.Kind == model.KindDatabaseList:
		return d.listDatabases(ctx)
	case req.Method == http.MethodGet && addr.Kind == model.KindCollectionList:
		return d.listCollections(ctx, addr)
	case req.Method == http.MethodGet && addr.Kind == model.KindCollection:
		return d.findAll(ctx, addr)
	case req.Method == http.MethodPost && addr.Kind == model.KindCollection:
		return d.insert(ctx, addr, req.Body)
	case req.Method == http.MethodGet && addr.Kind == model.KindDocument:
		return d.findOne(ctx, addr)
	case req.Method == http.MethodPut && addr.Kind == model.KindDocument:
		return d.update(ctx, addr, req.Body)
	case req.Method == http.MethodDelete && addr.Kind == model.KindDocument:
		return d.remove(ctx, addr)
	default:
		return nil, apperrors.NewMethodNotAllowedError(req.Method, addr.AllowedMethods())
	}
}

func (d *Dispatcher) listDatabases(ctx context.Context) (*Outcome, error) {
	conn, err := d.connections.Get(ctx, d.config.AdminDatabase)
	if err != nil {
		return nil, err
	}

	names, err := conn.ListDatabaseNames(ctx)
	if err != nil {
		return nil, d.storeFailure(ctx, "list databases", err)
	}
	return &Outcome{Kind: OutcomeListed, Names: sortedNames(names)}, nil
}

func (d *Dispatcher) listCollections(ctx context.Context, addr model.Address) (*Outcome, error) {
	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	names, err := conn.ListCollectionNames(ctx)
	if err != nil {
		return nil, d.storeFailure(ctx, "list collections", err)
	}
	return &Outcome{Kind: OutcomeListed, Names: sortedNames(names)}, nil
}

func (d *Dispatcher) findAll(ctx context.Context, addr model.Address) (*Outcome, error) {
	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	docs, err := conn.Find(ctx, addr.Collection)
	if err != nil {
		return nil, d.storeFailure(ctx, "find", err)
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return &Outcome{Kind: OutcomeListed, Documents: docs}, nil
}

func (d *Dispatcher) findOne(ctx context.Context, addr model.Address) (*Outcome, error) {
	id, err := model.DecodeID(addr.ID)
	if err != nil {
		return nil, err
	}

	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	doc, err := conn.FindOne(ctx, addr.Collection, id)
	if err != nil {
		return nil, d.storeFailure(ctx, "find one", err)
	}
	if doc == nil {
		return nil, apperrors.NewDocumentNotFoundError(addr.Database, addr.Collection, addr.ID)
	}
	return &Outcome{Kind: OutcomeFetched, Document: doc}, nil
}

func (d *Dispatcher) insert(ctx context.Context, addr model.Address, body []byte) (*Outcome, error) {
	wire, err := model.DecodeBody(body)
	if err != nil {
		return nil, err
	}
	doc, err := model.FromWire(wire)
	if err != nil {
		return nil, err
	}

	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	id, err := conn.Insert(ctx, addr.Collection, doc)
	if err != nil {
		return nil, d.storeFailure(ctx, "insert", err)
	}
	doc[model.IDField] = id.ObjectID()

	created := model.Address{
		Kind:       model.KindDocument,
		Database:   addr.Database,
		Collection: addr.Collection,
		ID:         model.EncodeID(id),
	}
	d.publish(ctx, eventbus.EventTypeDocumentCreated, model.ChangeInserted, created, model.ToWire(doc))

	ack := model.Ack(true)
	ack.ID = &id
	return &Outcome{Kind: OutcomeInserted, Ack: ack, Created: &created}, nil
}

func (d *Dispatcher) update(ctx context.Context, addr model.Address, body []byte) (*Outcome, error) {
	id, err := model.DecodeID(addr.ID)
	if err != nil {
		return nil, err
	}

	wire, err := model.DecodeBody(body)
	if err != nil {
		return nil, err
	}
	fields, err := model.FromWire(wire)
	if err != nil {
		return nil, err
	}
	if err := stripMatchingID(fields, id); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.NewInvalidDocumentError("update body must contain at least one field")
	}

	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	matched, err := conn.Update(ctx, addr.Collection, id, fields)
	if err != nil {
		return nil, d.storeFailure(ctx, "update", err)
	}
	if matched {
		d.publish(ctx, eventbus.EventTypeDocumentUpdated, model.ChangeUpdated, addr, model.ToWire(fields))
	}
	return &Outcome{Kind: OutcomeUpdated, Ack: model.Ack(matched)}, nil
}

func (d *Dispatcher) remove(ctx context.Context, addr model.Address) (*Outcome, error) {
	id, err := model.DecodeID(addr.ID)
	if err != nil {
		return nil, err
	}

	conn, err := d.connections.Get(ctx, addr.Database)
	if err != nil {
		return nil, err
	}

	deleted, err := conn.Remove(ctx, addr.Collection, id)
	if err != nil {
		return nil, d.storeFailure(ctx, "remove", err)
	}
	if deleted {
		d.publish(ctx, eventbus.EventTypeDocumentDeleted, model.ChangeDeleted, addr, nil)
	}
	return &Outcome{Kind: OutcomeDeleted, Ack: model.Ack(deleted)}, nil
}

// stripMatchingID removes _id from an update when it names the addressed document
func stripMatchingID(fields bson.M, id model.DocumentID) error {
	raw, ok := fields[model.IDField]
	if !ok {
		return nil
	}
	if raw != id.ObjectID() {
		return apperrors.NewInvalidDocumentError("_id in body does not match the addressed document").
			WithDetail("id", model.EncodeID(id))
	}
	delete(fields, model.IDField)
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, eventType string, change model.ChangeType, addr model.Address, data map[string]interface{}) {
	if d.bus == nil {
		return
	}

	event := model.ChangeEvent{
		Type:       change,
		Database:   addr.Database,
		Collection: addr.Collection,
		ID:         addr.ID,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}
	// Keyed by stream so a collection's changes are journaled and delivered
	// in the order their writes completed.
	d.bus.PublishAndForget(context.WithoutCancel(ctx),
		eventbus.NewOrderedEvent(eventType, event.Stream(), event, "dispatcher"))
}

// storeFailure keeps typed adapter errors and wraps anything else
func (d *Dispatcher) storeFailure(ctx context.Context, operation string, err error) error {
	d.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"error": err.Error(),
	}).Errorf("Store operation %s failed", operation)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.NewStoreError(operation, err)
}

func sortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
