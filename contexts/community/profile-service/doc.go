// Package profileservice owns user profiles inside the community context.
//
// It aggregates wagering outcomes into per-user stats (balance, win rate,
// experience), derives rankings for users past the eligibility threshold, and
// serves profile and leaderboard reads. Aggregation is event-driven: a
// consumer projects wagering lifecycle events onto profiles with dedupe and
// optimistic-concurrency retries.
package profileservice
