package outbox

const planActivatedSchema = `{
  "type": "object",
  "title": "PlanActivated",
  "properties": {
    "plan_id": {"type": "string"},
    "user_id": {"type": "string"},
    "start_date": {"type": "string", "format": "date-time"},
    "activated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["plan_id", "user_id", "start_date", "activated_at"],
  "additionalProperties": false
}`

const workoutSkippedSchema = `{
  "type": "object",
  "title": "WorkoutSkipped",
  "properties": {
    "plan_id": {"type": "string"},
    "user_id": {"type": "string"},
    "workout_id": {"type": "string"},
    "reason": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["plan_id", "user_id", "workout_id", "occurred_at"],
  "additionalProperties": false
}`

const participantJoinedSchema = `{
  "type": "object",
  "title": "ParticipantJoined",
  "properties": {
    "session_id": {"type": "string"},
    "user_id": {"type": "string"},
    "user_name": {"type": "string"},
    "joined_at": {"type": "string", "format": "date-time"}
  },
  "required": ["session_id", "user_id", "joined_at"],
  "additionalProperties": false
}`

const sessionCompletedSchema = `{
  "type": "object",
  "title": "SessionCompleted",
  "properties": {
    "session_id": {"type": "string"},
    "user_id": {"type": "string"},
    "plan_id": {"type": "string"},
    "workout_template_id": {"type": "string"},
    "active_duration_sec": {"type": "integer"},
    "completion_percent": {"type": "number"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["session_id", "user_id", "active_duration_sec", "completion_percent", "completed_at"],
  "additionalProperties": false
}`
