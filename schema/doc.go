// Package schema holds the compiled, read-only description of the
// entities the engine serves: their fields, relations and unique
// constraints.
//
// A Graph is built once from a YAML description and shared by every
// caller; nothing in it is mutated after Parse returns.
//
//	entities:
//	  - name: Student
//	    mixins: [id, tenant, time]
//	    unique:
//	      - [tenantId, admissionNumber]
//	    fields:
//	      - {name: firstName, type: string}
//	      - {name: admissionNumber, type: string}
//	      - {name: dateOfBirth, type: time, optional: true}
//	    relations:
//	      - {name: fees, target: Fee, many: true, inverse: student}
//
// Columns default to the snake_case field name and tables to the plural
// snake_case entity name.
package schema
