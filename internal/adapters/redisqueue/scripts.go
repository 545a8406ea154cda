package redisqueue

import "github.com/redis/go-redis/v9"

// Scripts receive every number as a preformatted string and never do
// arithmetic on scores, so results do not depend on Lua number formatting.

// addScript creates a job unless one with the same id exists.
//
// KEYS: job, wait, delayed
// ARGV: id, target ("wait" or "delayed"), score, field/value pairs...
var addScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 4))
if ARGV[2] == 'delayed' then
	redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
else
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
end
return 1
`)

// claimScript promotes due delayed jobs, requeues active jobs whose lock
// expired, then moves the first waiting job to active.
//
// KEYS: wait, delayed, active, failed
// ARGV: now ms, lock expiry ms, job key prefix, batch size
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1], 'LIMIT', '0', ARGV[4])
for _, id in ipairs(due) do
	local jk = ARGV[3] .. id
	redis.call('ZREM', KEYS[2], id)
	local score = redis.call('HGET', jk, 'wait_score')
	if score then
		redis.call('ZADD', KEYS[1], score, id)
		redis.call('HSET', jk, 'state', 'waiting')
	end
end

local stalled = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1], 'LIMIT', '0', ARGV[4])
for _, id in ipairs(stalled) do
	local jk = ARGV[3] .. id
	redis.call('ZREM', KEYS[3], id)
	local score = redis.call('HGET', jk, 'wait_score')
	if score then
		local made = tonumber(redis.call('HGET', jk, 'attempts_made') or '0')
		local max = tonumber(redis.call('HGET', jk, 'max_attempts') or '1')
		if made >= max then
			redis.call('ZADD', KEYS[4], ARGV[1], id)
			redis.call('HSET', jk, 'state', 'failed', 'last_error', 'job lock expired', 'finished_at', ARGV[1])
		else
			redis.call('ZADD', KEYS[1], score, id)
			redis.call('HSET', jk, 'state', 'waiting', 'last_error', 'job lock expired')
		end
	end
end

local ids = redis.call('ZRANGE', KEYS[1], 0, 0)
if #ids == 0 then
	return false
end
local id = ids[1]
local jk = ARGV[3] .. id
redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[3], ARGV[2], id)
redis.call('HSET', jk, 'state', 'active')
redis.call('HINCRBY', jk, 'attempts_made', 1)
return id
`)

// removeScript deletes a job that is not being processed.
// Returns 1 when removed, 0 when missing, -1 when active.
//
// KEYS: job, wait, delayed, active, completed, failed
// ARGV: id
var removeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
if redis.call('ZSCORE', KEYS[4], ARGV[1]) then
	return -1
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('ZREM', KEYS[5], ARGV[1])
redis.call('ZREM', KEYS[6], ARGV[1])
redis.call('DEL', KEYS[1])
return 1
`)
