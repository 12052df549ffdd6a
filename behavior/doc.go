// Package behavior selects one action per cycle and turns it into exactly
// one motion command.
//
// The Dispatcher evaluates an ordered list of rules against the world state;
// the first matching rule wins. Every action kind is handled by exactly one
// motion node, recorded in an ActionTable. Motion nodes publish a candidate
// under motion_candidates.<node> only while the current action is theirs and
// the MotionSelector forwards the candidate of the action's handler as the
// authoritative motion_command. Competing candidates cannot occur because a
// second handler for an action is rejected when the table is built.
package behavior
