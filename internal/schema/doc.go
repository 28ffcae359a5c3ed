// Package schema defines the JSON record shapes stored in the planner's
// remote documents.
//
// # Documents
//
// Two documents live in the data repository, each a JSON array of records:
//
//	data/tasks.json  → []Task  (Kanban board)
//	data/exams.json  → []Exam  (exam calendar)
//
// Example task:
//
//	{
//	  "id": "task-1718000000000-k3j9x0a1b",
//	  "name": "Repasar derivadas",
//	  "subject": "Matematicas",
//	  "startTime": "16:00",
//	  "endTime": "17:30",
//	  "date": "2024-06-08",
//	  "status": "inprogress",
//	  "highPriority": true,
//	  "created": "2024-06-01T10:00:00.000Z"
//	}
//
// Example exam:
//
//	{
//	  "id": "1718000000000-p0q8w2e4r",
//	  "subject": "Matematicas",
//	  "examName": "Parcial",
//	  "examDate": "2024-06-10",
//	  "reminderTime": 2,
//	  "created": "2024-06-01T10:00:00.000Z"
//	}
//
// # Loading
//
// Loading is tolerant: DecodeTasks and DecodeExams normalize each record
// (missing id, created, status) and let malformed field values pass through.
// Validate is only used for records entered through a command.
//
// # Conflict Resolution
//
// Records are flat and carry their own creation timestamp. The created field
// is the last-write-wins key used when two copies of a document are merged
// (see internal/sync).
package schema
