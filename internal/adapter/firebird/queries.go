package firebird

const queryEngineVersion = `SELECT RDB$GET_CONTEXT('SYSTEM', 'ENGINE_VERSION') FROM RDB$DATABASE`

// userTables keeps base tables only: no views, no RDB$/MON$ relations.
const userTables = `
WHERE RDB$VIEW_BLR IS NULL
  AND (RDB$SYSTEM_FLAG IS NULL OR RDB$SYSTEM_FLAG = 0)`

const queryListTables = `
SELECT TRIM(RDB$RELATION_NAME) AS TABLE_NAME,
       CAST(RDB$DESCRIPTION AS VARCHAR(8191)) AS DESCRIPTION
FROM RDB$RELATIONS` + userTables + `
ORDER BY RDB$RELATION_NAME`

const queryFindTable = `
SELECT TRIM(RDB$RELATION_NAME) AS TABLE_NAME,
       CAST(RDB$DESCRIPTION AS VARCHAR(8191)) AS DESCRIPTION
FROM RDB$RELATIONS` + userTables + `
  AND RDB$RELATION_NAME = ?`

const queryColumns = `
SELECT
    TRIM(rf.RDB$FIELD_NAME)                              AS FIELD_NAME,
    rf.RDB$FIELD_POSITION                                AS FIELD_POSITION,
    f.RDB$FIELD_TYPE                                     AS FIELD_TYPE,
    f.RDB$FIELD_SUB_TYPE                                 AS FIELD_SUB_TYPE,
    f.RDB$FIELD_LENGTH                                   AS FIELD_LENGTH,
    f.RDB$CHARACTER_LENGTH                               AS CHAR_LENGTH,
    f.RDB$FIELD_PRECISION                                AS FIELD_PRECISION,
    f.RDB$FIELD_SCALE                                    AS FIELD_SCALE,
    COALESCE(rf.RDB$NULL_FLAG, f.RDB$NULL_FLAG, 0)       AS NULL_FLAG,
    CAST(COALESCE(rf.RDB$DEFAULT_SOURCE, f.RDB$DEFAULT_SOURCE) AS VARCHAR(1024)) AS DEFAULT_SOURCE
FROM RDB$RELATION_FIELDS rf
JOIN RDB$FIELDS f ON f.RDB$FIELD_NAME = rf.RDB$FIELD_SOURCE
WHERE rf.RDB$RELATION_NAME = ?
ORDER BY rf.RDB$FIELD_POSITION`

const queryPrimaryKey = `
SELECT TRIM(s.RDB$FIELD_NAME) AS FIELD_NAME
FROM RDB$RELATION_CONSTRAINTS rc
JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = rc.RDB$INDEX_NAME
WHERE rc.RDB$RELATION_NAME = ?
  AND rc.RDB$CONSTRAINT_TYPE = 'PRIMARY KEY'
ORDER BY s.RDB$FIELD_POSITION`

const queryForeignKeys = `
SELECT
    TRIM(rc.RDB$CONSTRAINT_NAME) AS CONSTRAINT_NAME,
    TRIM(s.RDB$FIELD_NAME)       AS FIELD_NAME,
    TRIM(uq.RDB$RELATION_NAME)   AS REF_TABLE,
    TRIM(us.RDB$FIELD_NAME)      AS REF_FIELD
FROM RDB$RELATION_CONSTRAINTS rc
JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = rc.RDB$INDEX_NAME
JOIN RDB$REF_CONSTRAINTS ref ON ref.RDB$CONSTRAINT_NAME = rc.RDB$CONSTRAINT_NAME
JOIN RDB$RELATION_CONSTRAINTS uq ON uq.RDB$CONSTRAINT_NAME = ref.RDB$CONST_NAME_UQ
JOIN RDB$INDEX_SEGMENTS us ON us.RDB$INDEX_NAME = uq.RDB$INDEX_NAME
    AND us.RDB$FIELD_POSITION = s.RDB$FIELD_POSITION
WHERE rc.RDB$RELATION_NAME = ?
  AND rc.RDB$CONSTRAINT_TYPE = 'FOREIGN KEY'
ORDER BY rc.RDB$CONSTRAINT_NAME, s.RDB$FIELD_POSITION`

const queryIndexes = `
SELECT
    TRIM(i.RDB$INDEX_NAME)        AS INDEX_NAME,
    COALESCE(i.RDB$UNIQUE_FLAG, 0) AS UNIQUE_FLAG,
    TRIM(s.RDB$FIELD_NAME)        AS FIELD_NAME
FROM RDB$INDICES i
JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = i.RDB$INDEX_NAME
WHERE i.RDB$RELATION_NAME = ?
ORDER BY i.RDB$INDEX_NAME, s.RDB$FIELD_POSITION`
