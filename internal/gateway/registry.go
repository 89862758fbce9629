package gateway

import (
	"context"
	"sync"
	"time"

	"realtime-gateway/internal/shared/logger"

	"github.com/google/uuid"
)

// defaultSendRetryDelay backs retryDelay when a Registry is built without a
// Config (unit tests exercising the registry in isolation).
const defaultSendRetryDelay = 100 * time.Millisecond

// Subscription is one client's live interest in a collection (and
// optionally a single item within it), per spec §3's subscription record.
// internalUID is the bucket key: it equals the client-supplied UID when one
// is given. A client may omit uid entirely, and several uid-less
// subscriptions from the same client must still be individually
// addressable, so for those the registry mints a fresh UUID instead of
// keying on the empty client UID (see DESIGN.md for this open-question
// resolution).
type Subscription struct {
	ClientID   ClientID
	Collection string
	Item       interface{}
	Query      *Query
	Status     bool // whether focus tracking is enabled for this subscription (query.status style flag)

	UID         string
	internalUID string
}

func (s *Subscription) isSingleItem() bool {
	return s.Item != nil
}

type subscriptionKey struct {
	client ClientID
	uid    string
}

// Registry is the subscription fan-out index, bucketed by collection so
// dispatch only has to scan subscribers of the collection that changed.
// Grounded on internal/firestore's subscription-manager-over-mongo-driver
// shape, generalized to the spec's collection/item/query model.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]map[subscriptionKey]*Subscription
	// byClientUID indexes the collection holding a (client, uid) pair,
	// independent of sub.Collection, so insertLocked can find and evict a
	// prior subscription registered under the same uid in a *different*
	// collection. Spec §3/§8 invariant 2 scopes uid uniqueness to the whole
	// client, not to one collection's bucket.
	byClientUID map[ClientID]map[string]string

	manager  *Manager
	items    ItemsService
	meta     MetaService
	schemas  SchemaResolver
	resolver AccountabilityResolver
	sanitize *Sanitizer
	cfg      *Config
	log      logger.Logger
}

func NewRegistry(items ItemsService, meta MetaService, schemas SchemaResolver, resolver AccountabilityResolver, sanitize *Sanitizer, cfg *Config, log logger.Logger) *Registry {
	return &Registry{
		buckets:     make(map[string]map[subscriptionKey]*Subscription),
		byClientUID: make(map[ClientID]map[string]string),
		items:       items,
		meta:     meta,
		schemas:  schemas,
		resolver: resolver,
		sanitize: sanitize,
		cfg:      cfg,
		log:      log.WithComponent("registry"),
	}
}

// bindManager wires the registry to its Manager after construction, since
// Manager and Registry are mutually dependent within this package and
// cannot both be built in a single constructor call.
func (r *Registry) bindManager(m *Manager) {
	r.manager = m
}

func (r *Registry) retryDelay() time.Duration {
	if r.cfg == nil {
		return defaultSendRetryDelay
	}
	return r.cfg.SendRetryDelay
}

func (r *Registry) maxRetries() int {
	if r.cfg == nil {
		return DefaultMaxSendRetries
	}
	return r.cfg.MaxSendRetries
}

// Subscribe implements spec §4.4's 7-step SUBSCRIBE algorithm: resolve
// schema, check exposure, sanitize the query, build the (idempotently
// keyed) subscription, execute the first read now, and only record +
// acknowledge it if that first read succeeds.
func (r *Registry) Subscribe(ctx context.Context, client *Client, msg InboundMessage) {
	acc := client.Epoch().Accountability

	overview, err := r.schemas.ResolveSchema(ctx, acc)
	if err != nil {
		r.reject(ctx, client, msg, Internal(err))
		return
	}
	if !acc.Admin && !overview.HasCollection(msg.Collection) {
		r.reject(ctx, client, msg, InvalidCollection(msg.Collection))
		return
	}
	if !acc.Admin && !r.sanitize.Allows(msg.Collection, acc) {
		r.reject(ctx, client, msg, Forbidden("permission denied for "+msg.Collection))
		return
	}

	query := r.sanitize.Sanitize(msg.Query, acc)

	sub := &Subscription{
		ClientID:   client.ID,
		Collection: msg.Collection,
		Item:       msg.Item,
		Query:      query,
		Status:     msg.Status != nil && *msg.Status,
		UID:        msg.UID,
	}

	payload, metaVal, readErr := r.read(ctx, sub, acc)
	if readErr != nil {
		r.reject(ctx, client, msg, readErr)
		return
	}

	r.mu.Lock()
	sub.internalUID = r.insertLocked(sub)
	r.mu.Unlock()

	client.safeSend(ctx, OutboundMessage{
		Type:    TypeSubscription,
		UID:     msg.UID,
		Event:   EventInit,
		Payload: payload,
		Meta:    metaVal,
	}, r.retryDelay(), r.maxRetries())

	if sub.Item != nil && r.manager != nil {
		r.manager.presence.SetFocus(ctx, acc.User, sub.Collection, sub.Item, "")
	}
}

func (r *Registry) reject(ctx context.Context, client *Client, msg InboundMessage, err *Error) {
	client.safeSend(ctx, err.WithOrigin(TypeSubscription).ToFrame(msg.UID), r.retryDelay(), r.maxRetries())
}

// read executes the single-item or filtered-query read backing a
// subscription's current snapshot, fetching aggregate meta when requested.
func (r *Registry) read(ctx context.Context, sub *Subscription, acc Accountability) (interface{}, interface{}, *Error) {
	if sub.isSingleItem() {
		doc, err := r.items.ReadOne(ctx, sub.Collection, sub.Item, sub.Query, acc)
		if err != nil {
			return nil, nil, translateReadError(err)
		}
		return doc, nil, nil
	}

	docs, err := r.items.ReadByQuery(ctx, sub.Collection, sub.Query, acc)
	if err != nil {
		return nil, nil, translateReadError(err)
	}

	var metaVal interface{}
	if sub.Query != nil && len(sub.Query.Meta) > 0 {
		m, err := r.meta.GetMetaForQuery(ctx, sub.Collection, sub.Query, acc)
		if err != nil {
			r.log.Warnf("meta lookup failed for %s: %v", sub.Collection, err)
		} else {
			metaVal = m
		}
	}
	return docs, metaVal, nil
}

func translateReadError(err error) *Error {
	var gwErr *Error
	if asGatewayError(err, &gwErr) {
		return gwErr
	}
	return Forbidden(err.Error())
}

func asGatewayError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// insertLocked stores sub under a fresh internal key, replacing any prior
// subscription the same client registered under the same client-visible uid
// — even if that prior subscription lives in a different collection's
// bucket (spec §4.4's idempotent-resubscription rule, scoped per §8
// invariant 2 to the whole client, not one collection). Caller holds r.mu.
func (r *Registry) insertLocked(sub *Subscription) string {
	internalUID := sub.UID
	if internalUID == "" {
		internalUID = uuid.NewString()
	}

	if uids, ok := r.byClientUID[sub.ClientID]; ok {
		if priorCollection, exists := uids[internalUID]; exists && priorCollection != sub.Collection {
			if priorBucket, ok := r.buckets[priorCollection]; ok {
				delete(priorBucket, subscriptionKey{client: sub.ClientID, uid: internalUID})
			}
		}
	} else {
		r.byClientUID[sub.ClientID] = make(map[string]string)
	}
	r.byClientUID[sub.ClientID][internalUID] = sub.Collection

	key := subscriptionKey{client: sub.ClientID, uid: internalUID}
	bucket, ok := r.buckets[sub.Collection]
	if !ok {
		bucket = make(map[subscriptionKey]*Subscription)
		r.buckets[sub.Collection] = bucket
	}
	bucket[key] = sub
	return internalUID
}

// Unsubscribe removes one subscription (uid given) or every subscription
// the client holds (uid absent), per spec §4.4.
func (r *Registry) Unsubscribe(ctx context.Context, client *Client, msg InboundMessage) {
	if msg.UID != "" {
		r.removeByUID(client.ID, msg.Collection, msg.UID)
	} else {
		r.removeAllForClient(client.ID)
	}
	client.safeSend(ctx, OutboundMessage{Type: TypeSubscription, UID: msg.UID, Event: "unsubscribed"}, r.retryDelay(), r.maxRetries())
}

func (r *Registry) removeByUID(id ClientID, collection, uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// uid is the only stable cross-collection identity, so the client's own
	// index (not the caller-supplied collection) is authoritative for which
	// bucket actually holds this subscription.
	if actual, ok := r.byClientUID[id][uid]; ok {
		if bucket, ok := r.buckets[actual]; ok {
			delete(bucket, subscriptionKey{client: id, uid: uid})
		}
		delete(r.byClientUID[id], uid)
		return
	}
	if collection != "" {
		if bucket, ok := r.buckets[collection]; ok {
			delete(bucket, subscriptionKey{client: id, uid: uid})
		}
		return
	}
	for _, bucket := range r.buckets {
		delete(bucket, subscriptionKey{client: id, uid: uid})
	}
}

func (r *Registry) removeAllForClient(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bucket := range r.buckets {
		for key := range bucket {
			if key.client == id {
				delete(bucket, key)
			}
		}
	}
	delete(r.byClientUID, id)
}

// RemoveAllForClient is the public entry point Manager.teardown calls on
// disconnect.
func (r *Registry) RemoveAllForClient(ctx context.Context, id ClientID) {
	r.removeAllForClient(id)
}

// Dispatch implements spec §4.4's 5-step data-mutation dispatch algorithm:
// look up the bucket for the mutated collection, snapshot its subscribers,
// filter out subscriptions the event can't apply to, then for each survivor
// re-check accountability and schema, re-execute a fresh read (never relay
// the raw mutation payload), and send or report-without-tearing-down.
func (r *Registry) Dispatch(ctx context.Context, ev MutationEvent) {
	r.mu.RLock()
	bucket := r.buckets[ev.Collection]
	subs := make([]*Subscription, 0, len(bucket))
	for _, sub := range bucket {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		r.dispatchOne(ctx, sub, ev)
	}
}

func (r *Registry) dispatchOne(ctx context.Context, sub *Subscription, ev MutationEvent) {
	if ev.Action == "" && ev.Collection == "" {
		return
	}
	// focus synthetic events only apply to subscriptions with status tracking on.
	if ev.Action == MutationAction(EventFocus) && !sub.Status {
		return
	}
	// status synthetic events only fan out to directus_users subscriptions
	// that are NOT single-item (per the open-question decision in DESIGN.md).
	if ev.Action == MutationAction(EventStatus) {
		if ev.Collection != "directus_users" || sub.isSingleItem() {
			return
		}
	}

	client, ok := r.resolveClient(sub.ClientID)
	if !ok {
		// client gone; the subscription is stale and will be GC'd on next
		// teardown sweep rather than actively pruned here (spec §9).
		return
	}

	acc, err := r.resolver.Refresh(ctx, client.Epoch().Accountability)
	if err != nil {
		return
	}

	overview, err := r.schemas.ResolveSchema(ctx, acc)
	if err != nil || (!acc.Admin && !overview.HasCollection(sub.Collection)) {
		client.safeSend(ctx, Forbidden("collection access revoked").WithOrigin(TypeSubscription).ToFrame(sub.UID), r.retryDelay(), r.maxRetries())
		return
	}
	if !acc.Admin && !r.sanitize.Allows(sub.Collection, acc) {
		client.safeSend(ctx, Forbidden("permission denied for "+sub.Collection).WithOrigin(TypeSubscription).ToFrame(sub.UID), r.retryDelay(), r.maxRetries())
		return
	}

	payload, metaVal, readErr := r.read(ctx, sub, acc)
	if readErr != nil {
		client.safeSend(ctx, readErr.WithOrigin(TypeSubscription).ToFrame(sub.UID), r.retryDelay(), r.maxRetries())
		return
	}

	event := string(ev.Action)
	if event == "" {
		event = EventUpdate
	}
	client.safeSend(ctx, OutboundMessage{
		Type:    TypeSubscription,
		UID:     sub.UID,
		Event:   event,
		Payload: payload,
		Meta:    metaVal,
	}, r.retryDelay(), r.maxRetries())
}

func (r *Registry) resolveClient(id ClientID) (*Client, bool) {
	if r.manager == nil {
		return nil, false
	}
	return r.manager.Get(id)
}
