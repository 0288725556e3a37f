package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"email",
			"name",
			"role",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 254,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"phone": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9]\d{7,14}$`,
			},

			"role": bson.M{
				"bsonType": "string",
				"enum": []string{
					"student",
					"owner",
					"admin",
				},
			},

			"verified": bson.M{
				"bsonType": "bool",
			},

			"blacklisted": bson.M{
				"bsonType": "bool",
			},

			"two_factor": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"enabled": bson.M{
						"bsonType": "bool",
					},
					"backup_code_hashes": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "string",
						},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
