package domain

import "time"

// ProfileRecord - representation of a stored profile, as written to a shard table
type ProfileRecord struct {
	ID                string    `json:"id" dynamodbav:"id"` // Partition Key
	FullName          string    `json:"full_name" dynamodbav:"full_name"`
	Headline          string    `json:"headline" dynamodbav:"headline"`
	Location          string    `json:"location" dynamodbav:"location"`
	Locality          string    `json:"locality" dynamodbav:"locality"`
	Region            string    `json:"region" dynamodbav:"region"`
	Country           string    `json:"location_country" dynamodbav:"location_country"`
	Metro             string    `json:"metro" dynamodbav:"metro"`
	Industry          string    `json:"industry" dynamodbav:"industry"`
	CompanyName       string    `json:"company_name" dynamodbav:"company_name"`
	JobTitle          string    `json:"job_title" dynamodbav:"job_title"`
	Skills            []string  `json:"skills" dynamodbav:"skills,omitempty"`
	SearchableContent string    `json:"searchable_content" dynamodbav:"searchable_content"`
	ShardID           string    `json:"shard_id" dynamodbav:"shard_id"`
	UpdatedAt         time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
