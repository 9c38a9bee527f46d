package registration

import (
	"context"
	"fmt"

	"github.com/prohmpiriya/event-registration/internal/domain"
	pkgredis "github.com/prohmpiriya/event-registration/pkg/redis"
)

// Lua script names
const (
	scriptJoin         = "registration_join"
	scriptLeave        = "registration_leave"
	scriptSetCapacity  = "registration_set_capacity"
	scriptIsRegistered = "registration_is_registered"
	scriptSnapshot     = "registration_snapshot"
)

// Script replies are {status, attendee_count, capacity}.
// KEYS[1] = meta hash, KEYS[2] = attendee set.

const joinScript = `
local capacity = redis.call("HGET", KEYS[1], "capacity")
if not capacity then
    return {"not_found", 0, 0}
end
capacity = tonumber(capacity)
local count = redis.call("SCARD", KEYS[2])
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
    return {"already_registered", count, capacity}
end
if count >= capacity then
    return {"capacity_exceeded", count, capacity}
end
redis.call("SADD", KEYS[2], ARGV[1])
return {"joined", count + 1, capacity}
`

const leaveScript = `
local capacity = redis.call("HGET", KEYS[1], "capacity")
if not capacity then
    return {"not_found", 0, 0}
end
capacity = tonumber(capacity)
local removed = redis.call("SREM", KEYS[2], ARGV[1])
local count = redis.call("SCARD", KEYS[2])
if removed == 0 then
    return {"not_registered", count, capacity}
end
return {"left", count, capacity}
`

const setCapacityScript = `
local capacity = redis.call("HGET", KEYS[1], "capacity")
if not capacity then
    return {"not_found", 0, 0}
end
local count = redis.call("SCARD", KEYS[2])
local wanted = tonumber(ARGV[1])
if wanted < count then
    return {"below_attendees", count, tonumber(capacity)}
end
redis.call("HSET", KEYS[1], "capacity", wanted)
return {"ok", count, wanted}
`

const isRegisteredScript = `
local capacity = redis.call("HGET", KEYS[1], "capacity")
if not capacity then
    return {"not_found", 0, 0}
end
local count = redis.call("SCARD", KEYS[2])
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
    return {"registered", count, tonumber(capacity)}
end
return {"not_registered", count, tonumber(capacity)}
`

const snapshotScript = `
local capacity = redis.call("HGET", KEYS[1], "capacity")
if not capacity then
    return {"not_found", 0, 0}
end
return {"ok", redis.call("SCARD", KEYS[2]), tonumber(capacity)}
`

// RedisStore keeps each event in a capacity hash plus an attendee set.
// Every operation is one Lua script, which Redis runs atomically.
type RedisStore struct {
	client *pkgredis.Client
}

// NewRedisStore loads the registration scripts into Redis
func NewRedisStore(ctx context.Context, client *pkgredis.Client) (*RedisStore, error) {
	scripts := map[string]string{
		scriptJoin:         joinScript,
		scriptLeave:        leaveScript,
		scriptSetCapacity:  setCapacityScript,
		scriptIsRegistered: isRegisteredScript,
		scriptSnapshot:     snapshotScript,
	}
	for name, src := range scripts {
		if _, err := client.LoadScript(ctx, name, src); err != nil {
			return nil, err
		}
	}
	return &RedisStore{client: client}, nil
}

// Keys share the {eventID} hash tag so both land on one cluster slot
func metaKey(eventID string) string      { return fmt.Sprintf("event:{%s}:meta", eventID) }
func attendeesKey(eventID string) string { return fmt.Sprintf("event:{%s}:attendees", eventID) }

func keys(eventID string) []string {
	return []string{metaKey(eventID), attendeesKey(eventID)}
}

// InitEvent sets the capacity unless the event already exists
func (s *RedisStore) InitEvent(ctx context.Context, eventID string, capacity int) error {
	if err := domain.ValidateCapacity(capacity); err != nil {
		return err
	}
	return s.client.HSetNX(ctx, metaKey(eventID), "capacity", capacity).Err()
}

// SetCapacity changes capacity unless it would drop below the attendee count
func (s *RedisStore) SetCapacity(ctx context.Context, eventID string, capacity int) (Snapshot, error) {
	if err := domain.ValidateCapacity(capacity); err != nil {
		return Snapshot{}, err
	}
	status, snap, err := s.eval(ctx, scriptSetCapacity, eventID, capacity)
	if err != nil {
		return Snapshot{}, err
	}
	switch status {
	case "ok":
		return snap, nil
	case "below_attendees":
		return snap, domain.ErrCapacityBelowAttendees
	default:
		return Snapshot{}, unexpected(status)
	}
}

// RemoveEvent deletes both keys
func (s *RedisStore) RemoveEvent(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, keys(eventID)...).Err()
}

// Join runs the join script
func (s *RedisStore) Join(ctx context.Context, eventID, accountID string) (domain.JoinOutcome, Snapshot, error) {
	status, snap, err := s.eval(ctx, scriptJoin, eventID, accountID)
	if err != nil {
		return "", Snapshot{}, err
	}
	switch outcome := domain.JoinOutcome(status); outcome {
	case domain.Joined, domain.AlreadyRegistered, domain.CapacityExceeded:
		return outcome, snap, nil
	default:
		return "", Snapshot{}, unexpected(status)
	}
}

// Leave runs the leave script
func (s *RedisStore) Leave(ctx context.Context, eventID, accountID string) (domain.LeaveOutcome, Snapshot, error) {
	status, snap, err := s.eval(ctx, scriptLeave, eventID, accountID)
	if err != nil {
		return "", Snapshot{}, err
	}
	switch outcome := domain.LeaveOutcome(status); outcome {
	case domain.Left, domain.NotRegistered:
		return outcome, snap, nil
	default:
		return "", Snapshot{}, unexpected(status)
	}
}

// IsRegistered checks set membership
func (s *RedisStore) IsRegistered(ctx context.Context, eventID, accountID string) (bool, error) {
	status, _, err := s.eval(ctx, scriptIsRegistered, eventID, accountID)
	if err != nil {
		return false, err
	}
	switch status {
	case "registered":
		return true, nil
	case "not_registered":
		return false, nil
	default:
		return false, unexpected(status)
	}
}

// Snapshot reads capacity and the attendee count
func (s *RedisStore) Snapshot(ctx context.Context, eventID string) (Snapshot, error) {
	status, snap, err := s.eval(ctx, scriptSnapshot, eventID)
	if err != nil {
		return Snapshot{}, err
	}
	if status != "ok" {
		return Snapshot{}, unexpected(status)
	}
	return snap, nil
}

// eval runs a script and decodes its {status, count, capacity} reply.
// A not_found status is returned as domain.ErrEventNotFound.
func (s *RedisStore) eval(ctx context.Context, name, eventID string, args ...interface{}) (string, Snapshot, error) {
	res, err := s.client.EvalShaByName(ctx, name, keys(eventID), args...).Result()
	if err != nil {
		return "", Snapshot{}, fmt.Errorf("%s: %w", name, err)
	}
	status, snap, err := parseReply(res)
	if err != nil {
		return "", Snapshot{}, fmt.Errorf("%s: %w", name, err)
	}
	if status == "not_found" {
		return "", Snapshot{}, domain.ErrEventNotFound
	}
	return status, snap, nil
}

func parseReply(res interface{}) (string, Snapshot, error) {
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return "", Snapshot{}, errUnexpectedReply
	}
	status, ok := values[0].(string)
	if !ok {
		return "", Snapshot{}, errUnexpectedReply
	}
	count, ok := values[1].(int64)
	if !ok {
		return "", Snapshot{}, errUnexpectedReply
	}
	capacity, ok := values[2].(int64)
	if !ok {
		return "", Snapshot{}, errUnexpectedReply
	}
	return status, Snapshot{Capacity: int(capacity), AttendeeCount: int(count)}, nil
}

func unexpected(status string) error {
	return fmt.Errorf("%w: status %q", errUnexpectedReply, status)
}
