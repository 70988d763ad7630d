package validators

import "go.mongodb.org/mongo-driver/bson"

var SnapshotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tenant_id",
			"kind",
			"resource_id",
			"allocations",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"tenant_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"room",
					"event",
				},
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"capacity_limit": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"allocations": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"_id", "holder_id", "status", "created_at"},
					"properties": bson.M{
						"_id": bson.M{
							"bsonType": "string",
						},
						"booking_id": bson.M{
							"bsonType": "string",
						},
						"holder_id": bson.M{
							"bsonType":  "string",
							"minLength": 1,
							"maxLength": 128,
						},
						"start": bson.M{
							"bsonType": "date",
						},
						"end": bson.M{
							"bsonType": "date",
						},
						"weight": bson.M{
							"bsonType": "int",
							"minimum":  0,
						},
						"status": bson.M{
							"bsonType": "string",
							"enum": []string{
								"reserved",
								"confirmed",
							},
						},
						"created_at": bson.M{
							"bsonType": "date",
						},
						"expires_at": bson.M{
							"bsonType": "date",
						},
					},
				},
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
