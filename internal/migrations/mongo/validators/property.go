package validators

import "go.mongodb.org/mongo-driver/bson"

var PropertyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner_id",
			"title",
			"address",
			"price_per_month",
			"total_rooms",
			"live_stats",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 150,
			},

			"address": bson.M{
				"bsonType": "object",
				"required": []string{"line1", "city"},
				"properties": bson.M{
					"line1": bson.M{
						"bsonType": "string",
					},
					"city": bson.M{
						"bsonType": "string",
					},
				},
			},

			"price_per_month": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"total_rooms": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"live_stats": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"occupied_rooms": bson.M{
						"bsonType": []string{"int", "long"},
						"minimum":  0,
					},
					"views": bson.M{
						"bsonType": []string{"int", "long"},
						"minimum":  0,
					},
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"approved",
					"rejected",
					"archived",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
