package repo

// ===== HOUSES / ROOMS (authoritative store) =====

const createHouse = `INSERT INTO houses (name, address)
VALUES ($1, $2)
RETURNING id, name, address, created_at, updated_at;`

const getHouses = `SELECT id, name, address, created_at, updated_at
FROM houses ORDER BY id`

const getHouseByID = `SELECT id, name, address, created_at, updated_at
FROM houses WHERE id = $1`

const deleteHouse = `DELETE FROM houses WHERE id = $1`

const houseExists = `SELECT EXISTS (SELECT 1 FROM houses WHERE id = $1)`

const createRoom = `INSERT INTO rooms (house_id, name, floor)
VALUES ($1, $2, $3)
RETURNING id, house_id, name, floor, created_at, updated_at;`

const getRoomsByHouse = `SELECT id, house_id, name, floor, created_at, updated_at
FROM rooms WHERE house_id = $1 ORDER BY id`

const getRoomByID = `SELECT id, house_id, name, floor, created_at, updated_at
FROM rooms WHERE id = $1`

// house_id нужен для ключа события удаления
const deleteRoom = `DELETE FROM rooms WHERE id = $1 RETURNING house_id`

// ===== OUTBOX =====

const insertOutboxQuery = `
INSERT INTO outbox_event (
  aggregate_id, aggregate_type, event_type, house_id, room_id, payload, status, attempts, next_attempt_at, created_at
) VALUES ($1,$2,$3,$4,$5, ($6)::jsonb, $7, 0, now(), now())
RETURNING id
`

// Резервирование батча с lease. Строка попадает в выборку, только если ни одна
// более ранняя неотправленная строка того же агрегата не «застряла» (в backoff,
// зарезервирована другим воркером, исчерпала попытки или GAVE_UP) — иначе
// позднее событие обогнало бы раннее.
const reserveBatchSQL = `
WITH picked AS (
	SELECT id
  	FROM outbox_event o
  	WHERE o.status IN ('NEW','FAILED')
		AND o.next_attempt_at <= now()
    	AND o.attempts < $3
		AND NOT EXISTS (
			SELECT 1 FROM outbox_event p
			WHERE p.aggregate_id = o.aggregate_id
				AND p.id < o.id
				AND p.status <> 'SENT'
				AND (p.status = 'GAVE_UP' OR p.next_attempt_at > now() OR p.attempts >= $3)
		)
  	ORDER BY id
  	FOR UPDATE SKIP LOCKED
	LIMIT $2
)
UPDATE outbox_event AS o
SET next_attempt_at = now() + $1::interval
FROM picked
WHERE o.id = picked.id
RETURNING o.id, o.aggregate_id, o.aggregate_type, o.event_type, o.house_id, o.room_id, o.payload, o.status, o.attempts, o.next_attempt_at, o.created_at;
`

const markFailedSQL = `
UPDATE outbox_event
SET status=$2, attempts=attempts+1, next_attempt_at=$3, last_error=$4
WHERE id=$1`

const markGaveUpSQL = `
UPDATE outbox_event
SET status=$2, attempts=attempts+1, next_attempt_at=now(), last_error=coalesce($3, last_error)
WHERE id=$1
`

// Guard по статусу: два конкурирующих воркера не перепишут бухгалтерию друг друга
const markSentSQL = `UPDATE outbox_event SET status=$2, last_error=NULL WHERE id=$1 AND status <> 'SENT'`

const pruneSentOutbox = `DELETE FROM outbox_event
		WHERE status = 'SENT' AND created_at < now() - make_interval(days => $1)`

// ===== REPLICA (temperature side) =====

// CAS по last_event_id: дубликат или устаревшее событие не проходит.
// Строка inbox переживает удаление сущности и работает как tombstone.
const advanceInboxSQL = `
INSERT INTO replica_inbox (aggregate_id, last_event_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (aggregate_id) DO UPDATE
SET last_event_id = EXCLUDED.last_event_id, updated_at = now()
WHERE replica_inbox.last_event_id < EXCLUDED.last_event_id
RETURNING last_event_id
`

const upsertHouseReplica = `
INSERT INTO house_replica (id, name, address, last_event_id, last_synced_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, address = EXCLUDED.address,
    last_event_id = EXCLUDED.last_event_id, last_synced_at = now()
WHERE house_replica.last_event_id < EXCLUDED.last_event_id
`

const upsertRoomReplica = `
INSERT INTO room_replica (id, house_id, name, floor, last_event_id, last_synced_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE
SET house_id = EXCLUDED.house_id, name = EXCLUDED.name, floor = EXCLUDED.floor,
    last_event_id = EXCLUDED.last_event_id, last_synced_at = now()
WHERE room_replica.last_event_id < EXCLUDED.last_event_id
`

const deleteHouseReplica = `DELETE FROM house_replica WHERE id = $1`

const deleteRoomReplicasByHouse = `DELETE FROM room_replica WHERE house_id = $1`

const deleteReadingsByHouse = `DELETE FROM temperature_reading
		WHERE room_id IN (SELECT id FROM room_replica WHERE house_id = $1)`

const deleteRoomReplica = `DELETE FROM room_replica WHERE id = $1`

const deleteReadingsByRoom = `DELETE FROM temperature_reading WHERE room_id = $1`

const houseReplicaExists = `SELECT EXISTS (SELECT 1 FROM house_replica WHERE id = $1)`

const roomReplicaExists = `SELECT EXISTS (SELECT 1 FROM room_replica WHERE id = $1)`

const listHouseReplicas = `SELECT id, name, address, last_event_id, last_synced_at
FROM house_replica ORDER BY id`

// "дом содержит комнаты" - производный join по house_id, а не обратная ссылка
const listRoomReplicasByHouse = `SELECT id, house_id, name, floor, last_event_id, last_synced_at
FROM room_replica WHERE house_id = $1 ORDER BY id`

const insertReading = `INSERT INTO temperature_reading (id, room_id, value, measured_at, created_at)
VALUES ($1, $2, $3, $4, now())`

const listReadingsByRoom = `SELECT id, room_id, value, measured_at, created_at
FROM temperature_reading WHERE room_id = $1
ORDER BY measured_at DESC LIMIT $2`

const houseTemperatureSummary = `
SELECT r.id, r.name, coalesce(round(avg(t.value), 2)::text, ''), count(t.id)
FROM room_replica r
LEFT JOIN temperature_reading t ON t.room_id = r.id
WHERE r.house_id = $1
GROUP BY r.id, r.name
ORDER BY r.id
`
